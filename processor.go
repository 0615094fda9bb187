package shroud

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"
)

// Processor encrypts tagged struct fields on Send and restores them on
// Receive, marshaling through a Codec.
//
// Processors are safe for concurrent use. SetEncryptor may be called at any
// time to rotate keys.
//
// Validation occurs automatically on first operation. Configure all required
// encryptors before the first call to Send or Receive.
type Processor[T Cloner[T]] struct {
	codec Codec
	mode  Mode

	// Mutable configuration protected by mu
	mu         sync.RWMutex
	encryptors map[EncryptAlgo]Encryptor

	// Validation state (runs once on first operation)
	validateOnce sync.Once
	validateErr  error

	// Immutable after construction
	fields   []fieldPlan
	typeName string
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*processorConfig)

type processorConfig struct {
	mode       Mode
	encryptors map[EncryptAlgo]Encryptor
}

// WithDecodeMode selects strict or compat decoding on Receive.
func WithDecodeMode(mode Mode) ProcessorOption {
	return func(c *processorConfig) {
		c.mode = mode
	}
}

// WithEncryptor registers an encryptor at construction.
func WithEncryptor(algo EncryptAlgo, enc Encryptor) ProcessorOption {
	return func(c *processorConfig) {
		c.encryptors[algo] = enc
	}
}

// resolveConfig applies opts over the defaults.
func resolveConfig(opts []ProcessorOption) *processorConfig {
	cfg := &processorConfig{
		mode:       ModeStrict,
		encryptors: make(map[EncryptAlgo]Encryptor),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// NewProcessor creates a new Processor for type T.
//
// Encryptors must be configured via WithEncryptor or SetEncryptor before
// Send or Receive touches a tagged field. A tag naming an unknown algorithm,
// or placed on a field that is not a string, []byte, []string or
// map[K]string, fails with ErrInvalidTag.
func NewProcessor[T Cloner[T]](codec Codec, opts ...ProcessorOption) (*Processor[T], error) {
	plans, err := getOrBuildPlans[T]()
	if err != nil {
		return nil, err
	}

	cfg := resolveConfig(opts)

	p := &Processor[T]{
		codec:      codec,
		mode:       cfg.mode,
		encryptors: cfg.encryptors,
		fields:     plans.fields,
		typeName:   plans.typeName,
	}

	emitProcessorCreated(context.Background(), codec.ContentType(), plans.typeName)
	return p, nil
}

// SetEncryptor registers an encryptor for the given algorithm.
// Returns the processor for chaining. Safe for concurrent use.
func (p *Processor[T]) SetEncryptor(algo EncryptAlgo, enc Encryptor) *Processor[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.encryptors[algo] = enc
	return p
}

// Mode returns the decode mode used by Receive.
func (p *Processor[T]) Mode() Mode {
	return p.mode
}

// Validate checks that every tagged field has a registered encryptor.
//
// Validation also runs automatically on first operation. Calling Validate
// explicitly allows catching configuration errors at startup.
func (p *Processor[T]) Validate() error {
	return p.ensureValidated()
}

// ensureValidated runs validation once and caches the result.
func (p *Processor[T]) ensureValidated() error {
	p.validateOnce.Do(func() {
		p.mu.RLock()
		defer p.mu.RUnlock()
		p.validateErr = p.validateEncryptors()
	})
	return p.validateErr
}

// validateEncryptors is skipped when T handles both directions itself.
func (p *Processor[T]) validateEncryptors() error {
	var zero T
	_, hasEncryptable := any(&zero).(Encryptable)
	_, hasDecryptable := any(&zero).(Decryptable)
	if hasEncryptable && hasDecryptable {
		return nil
	}

	for _, plan := range p.fields {
		if _, ok := p.encryptors[plan.algo]; !ok {
			return newConfigError(ErrMissingEncryptor, string(plan.algo), plan.name)
		}
	}
	return nil
}

// Send encrypts tagged fields on a clone of obj and marshals the result.
// The original is never modified.
func (p *Processor[T]) Send(ctx context.Context, obj *T) ([]byte, error) {
	if err := p.ensureValidated(); err != nil {
		return nil, err
	}

	start := time.Now()
	emitSendStart(ctx, p.codec.ContentType(), p.typeName)

	var retErr error
	var retData []byte
	defer func() {
		emitSendComplete(ctx, p.codec.ContentType(), p.typeName,
			len(retData), time.Since(start), len(p.fields), retErr)
	}()

	if obj == nil {
		retData, retErr = p.marshal(nil)
		return retData, retErr
	}

	clone := (*obj).Clone()

	p.mu.RLock()
	defer p.mu.RUnlock()

	if e, ok := any(&clone).(Encryptable); ok {
		if err := e.Encrypt(p.encryptors); err != nil {
			retErr = fmt.Errorf("encrypt: %w", err)
			return nil, retErr
		}
	} else if err := p.applyEncrypt(&clone); err != nil {
		retErr = err
		return nil, retErr
	}

	retData, retErr = p.marshal(&clone)
	return retData, retErr
}

// Receive unmarshals data and decrypts tagged fields.
func (p *Processor[T]) Receive(ctx context.Context, data []byte) (*T, error) {
	if err := p.ensureValidated(); err != nil {
		return nil, err
	}

	start := time.Now()
	emitReceiveStart(ctx, p.codec.ContentType(), p.typeName)

	var retErr error
	defer func() {
		emitReceiveComplete(ctx, p.codec.ContentType(), p.typeName,
			len(data), time.Since(start), len(p.fields), retErr)
	}()

	var obj T
	if err := p.codec.Unmarshal(data, &obj); err != nil {
		retErr = newCodecError(ErrUnmarshal, err)
		return nil, retErr
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.decrypt(ctx, &obj); err != nil {
		retErr = err
		return nil, retErr
	}

	return &obj, nil
}

// ReceiveAll unmarshals a list and decrypts every element in order. The
// first element that fails aborts the call.
func (p *Processor[T]) ReceiveAll(ctx context.Context, data []byte) ([]T, error) {
	if err := p.ensureValidated(); err != nil {
		return nil, err
	}

	start := time.Now()
	emitReceiveStart(ctx, p.codec.ContentType(), p.typeName)

	var retErr error
	var list []T
	defer func() {
		emitReceiveComplete(ctx, p.codec.ContentType(), p.typeName,
			len(data), time.Since(start), len(p.fields)*len(list), retErr)
	}()

	if err := p.codec.Unmarshal(data, &list); err != nil {
		retErr = newCodecError(ErrUnmarshal, err)
		return nil, retErr
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	for i := range list {
		if err := p.decrypt(ctx, &list[i]); err != nil {
			retErr = fmt.Errorf("element %d: %w", i, err)
			return nil, retErr
		}
	}

	return list, nil
}

func (p *Processor[T]) marshal(v any) ([]byte, error) {
	data, err := p.codec.Marshal(v)
	if err != nil {
		return nil, newCodecError(ErrMarshal, err)
	}
	return data, nil
}

// decrypt must be called with mu held for reading.
func (p *Processor[T]) decrypt(ctx context.Context, obj *T) error {
	if d, ok := any(obj).(Decryptable); ok {
		if err := d.Decrypt(p.encryptors); err != nil {
			return fmt.Errorf("decrypt: %w", err)
		}
		return nil
	}
	return p.applyDecrypt(ctx, obj)
}

// applyEncrypt applies encrypt transformations via reflection.
func (p *Processor[T]) applyEncrypt(obj *T) error {
	rv := reflect.ValueOf(obj).Elem()

	for _, plan := range p.fields {
		enc := p.encryptors[plan.algo]

		field, ok := fieldValue(rv, plan)
		if !ok {
			continue
		}

		if plan.isSlice {
			for i := 0; i < field.Len(); i++ {
				elem := field.Index(i)
				if !elem.CanSet() {
					continue
				}
				text, err := encryptText(enc, elem.String())
				if err != nil {
					return newTransformError(ErrEncrypt, "encrypt", fmt.Sprintf("%s[%d]", plan.name, i), err)
				}
				elem.SetString(text)
			}
			continue
		}

		if plan.isMap {
			iter := field.MapRange()
			for iter.Next() {
				k, v := iter.Key(), iter.Value()
				text, err := encryptText(enc, v.String())
				if err != nil {
					return newTransformError(ErrEncrypt, "encrypt", fmt.Sprintf("%s[%v]", plan.name, k.Interface()), err)
				}
				field.SetMapIndex(k, reflect.ValueOf(text).Convert(v.Type()))
			}
			continue
		}

		if !field.CanSet() {
			continue
		}

		if plan.isBytes {
			if field.Len() == 0 {
				continue
			}
			ciphertext, err := enc.Encrypt(field.Bytes())
			if err != nil {
				return newTransformError(ErrEncrypt, "encrypt", plan.name, err)
			}
			field.SetBytes(ciphertext)
			continue
		}

		text, err := encryptText(enc, field.String())
		if err != nil {
			return newTransformError(ErrEncrypt, "encrypt", plan.name, err)
		}
		field.SetString(text)
	}

	return nil
}

// applyDecrypt applies decrypt transformations via reflection.
func (p *Processor[T]) applyDecrypt(ctx context.Context, obj *T) error {
	rv := reflect.ValueOf(obj).Elem()

	for _, plan := range p.fields {
		enc := p.encryptors[plan.algo]

		field, ok := fieldValue(rv, plan)
		if !ok {
			continue
		}

		if plan.isSlice {
			for i := 0; i < field.Len(); i++ {
				elem := field.Index(i)
				if !elem.CanSet() {
					continue
				}
				name := fmt.Sprintf("%s[%d]", plan.name, i)
				text, err := p.decryptText(ctx, enc, name, elem.String())
				if err != nil {
					return err
				}
				elem.SetString(text)
			}
			continue
		}

		if plan.isMap {
			iter := field.MapRange()
			for iter.Next() {
				k, v := iter.Key(), iter.Value()
				name := fmt.Sprintf("%s[%v]", plan.name, k.Interface())
				text, err := p.decryptText(ctx, enc, name, v.String())
				if err != nil {
					return err
				}
				field.SetMapIndex(k, reflect.ValueOf(text).Convert(v.Type()))
			}
			continue
		}

		if !field.CanSet() {
			continue
		}

		if plan.isBytes {
			if field.Len() == 0 {
				continue
			}
			plaintext, err := p.decryptBytes(ctx, enc, plan.name, field.Bytes())
			if err != nil {
				return err
			}
			field.SetBytes(plaintext)
			continue
		}

		text, err := p.decryptText(ctx, enc, plan.name, field.String())
		if err != nil {
			return err
		}
		field.SetString(text)
	}

	return nil
}

// encryptText encrypts s and renders it as transport text. The empty string
// stays empty.
func encryptText(enc Encryptor, s string) (string, error) {
	if s == "" {
		return "", nil
	}
	ciphertext, err := enc.Encrypt([]byte(s))
	if err != nil {
		return "", err
	}
	return EncodeTransport(ciphertext), nil
}

// decryptText restores transport text. In ModeCompat a *DecodeError is
// replaced by its fallback value.
func (p *Processor[T]) decryptText(ctx context.Context, enc Encryptor, name, s string) (string, error) {
	if s == "" {
		return "", nil
	}

	var err error
	ciphertext, derr := DecodeTransport(s)
	if derr != nil {
		err = &DecodeError{Err: ErrInvalidEncoding, Input: s, Cause: derr}
	} else {
		plaintext, oerr := enc.Decrypt(ciphertext)
		if oerr == nil {
			return string(plaintext), nil
		}
		err = oerr
	}

	var de *DecodeError
	if p.mode == ModeCompat && errors.As(err, &de) {
		if de.Input == "" {
			de.Input = s
		}
		emitFieldFallback(ctx, name, err)
		return de.Fallback(), nil
	}

	return "", newTransformError(ErrDecrypt, "decrypt", name, err)
}

// decryptBytes restores a raw []byte field. In ModeCompat a padding
// mismatch yields the raw decrypted bytes.
func (p *Processor[T]) decryptBytes(ctx context.Context, enc Encryptor, name string, ciphertext []byte) ([]byte, error) {
	plaintext, err := enc.Decrypt(ciphertext)
	if err == nil {
		return plaintext, nil
	}

	var de *DecodeError
	if p.mode == ModeCompat && errors.As(err, &de) {
		emitFieldFallback(ctx, name, err)
		if de.Raw != nil {
			return de.Raw, nil
		}
		return ciphertext, nil
	}

	return nil, newTransformError(ErrDecrypt, "decrypt", name, err)
}
