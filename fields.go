package shroud

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Wire names of the record fields encrypted by default.
const (
	FieldName         = "nama"
	FieldAddress      = "alamat"
	FieldPhone        = "nomor_hp"
	FieldComplaint    = "keluhan"
	FieldDiagnosis    = "diagnosa"
	FieldProcedure    = "tindakan"
	FieldPrescription = "resep_obat"
	FieldPhysician    = "dokter_penanggung_jawab"
)

// DefaultFields returns the default allow-list in its fixed order.
func DefaultFields() []string {
	return []string{
		FieldName,
		FieldAddress,
		FieldPhone,
		FieldComplaint,
		FieldDiagnosis,
		FieldProcedure,
		FieldPrescription,
		FieldPhysician,
	}
}

// Record is a decoded JSON object. Only allow-listed keys holding strings
// are ever rewritten.
type Record map[string]any

// FieldEncryptor applies a Stream, under one key, to the allow-listed
// fields of a Record. It holds no mutable state and is safe for concurrent
// use.
type FieldEncryptor struct {
	stream      *Stream
	fields      []string
	mode        Mode
	parallel    int
	fingerprint string
}

// FieldOption configures a FieldEncryptor.
type FieldOption func(*FieldEncryptor)

// WithFields replaces the allow-list.
func WithFields(names ...string) FieldOption {
	return func(f *FieldEncryptor) {
		f.fields = append([]string(nil), names...)
	}
}

// WithMode selects strict or compat decoding. The default is ModeStrict.
func WithMode(mode Mode) FieldOption {
	return func(f *FieldEncryptor) {
		f.mode = mode
	}
}

// WithParallel bounds the number of goroutines DecryptRecords uses.
// Values below 1 are treated as 1.
func WithParallel(n int) FieldOption {
	return func(f *FieldEncryptor) {
		f.parallel = max(n, 1)
	}
}

// NewFieldEncryptor builds a FieldEncryptor keyed with key.
func NewFieldEncryptor(key []byte, opts ...FieldOption) *FieldEncryptor {
	f := &FieldEncryptor{
		stream:      NewStream(key),
		fields:      DefaultFields(),
		mode:        ModeStrict,
		parallel:    1,
		fingerprint: Fingerprint(key),
	}
	for _, opt := range opts {
		opt(f)
	}

	emitFieldEncryptorCreated(context.Background(), f.fingerprint, len(f.fields), f.mode)
	return f
}

// Fields returns a copy of the allow-list.
func (f *FieldEncryptor) Fields() []string {
	return append([]string(nil), f.fields...)
}

// Mode returns the decode mode.
func (f *FieldEncryptor) Mode() Mode {
	return f.mode
}

// Stream returns the codec used for each field.
func (f *FieldEncryptor) Stream() *Stream {
	return f.stream
}

// EncryptRecord returns a shallow copy of r with every allow-listed,
// non-empty string field encoded. All other fields are copied untouched.
func (f *FieldEncryptor) EncryptRecord(ctx context.Context, r Record) Record {
	out, n := f.encryptRecord(r)
	emitRecordsEncrypted(ctx, f.fingerprint, 1, n)
	return out
}

func (f *FieldEncryptor) encryptRecord(r Record) (Record, int) {
	if r == nil {
		return nil, 0
	}

	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}

	n := 0
	for _, name := range f.fields {
		s, ok := out[name].(string)
		if !ok || s == "" {
			continue
		}
		out[name] = f.stream.Encode(s)
		n++
	}

	return out, n
}

// DecryptRecord returns a shallow copy of r with every allow-listed,
// non-empty string field decoded. In ModeStrict the first field that fails
// aborts with a *TransformError; in ModeCompat the field takes its legacy
// fallback value and SignalFieldFallback is emitted.
func (f *FieldEncryptor) DecryptRecord(ctx context.Context, r Record) (Record, error) {
	start := time.Now()
	out, n, err := f.decryptRecord(ctx, r)
	emitRecordsDecrypted(ctx, f.fingerprint, 1, n, time.Since(start), err)
	return out, err
}

func (f *FieldEncryptor) decryptRecord(ctx context.Context, r Record) (Record, int, error) {
	if r == nil {
		return nil, 0, nil
	}

	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}

	n := 0
	for _, name := range f.fields {
		s, ok := out[name].(string)
		if !ok || s == "" {
			continue
		}

		plaintext, err := f.stream.DecodeMode(s, f.mode)
		if err != nil {
			if f.mode != ModeCompat {
				return nil, n, newTransformError(ErrDecrypt, "decrypt", name, err)
			}
			emitFieldFallback(ctx, name, err)
			out[name] = plaintext
			continue
		}

		out[name] = plaintext
		n++
	}

	return out, n, nil
}

// DecryptRecords applies DecryptRecord to each element of rs, preserving
// order. With WithParallel(n > 1) records are decrypted on up to n
// goroutines.
func (f *FieldEncryptor) DecryptRecords(ctx context.Context, rs []Record) ([]Record, error) {
	start := time.Now()
	out, n, err := f.decryptRecords(ctx, rs)
	emitRecordsDecrypted(ctx, f.fingerprint, len(rs), n, time.Since(start), err)
	return out, err
}

func (f *FieldEncryptor) decryptRecords(ctx context.Context, rs []Record) ([]Record, int, error) {
	if rs == nil {
		return nil, 0, nil
	}

	out := make([]Record, len(rs))
	counts := make([]int, len(rs))

	if f.parallel <= 1 || len(rs) < 2 {
		total := 0
		for i, r := range rs {
			dec, n, err := f.decryptRecord(ctx, r)
			total += n
			if err != nil {
				return nil, total, err
			}
			out[i] = dec
		}
		return out, total, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.parallel)

	for i, r := range rs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			dec, n, err := f.decryptRecord(ctx, r)
			counts[i] = n
			if err != nil {
				return err
			}
			out[i] = dec
			return nil
		})
	}

	err := g.Wait()

	total := 0
	for _, n := range counts {
		total += n
	}
	if err != nil {
		return nil, total, err
	}
	return out, total, nil
}

// DecryptPayload decrypts a decoded JSON list of records. []Record,
// []map[string]any and []any are accepted; elements of a []any that are not
// objects are kept as they are. Any other value is returned unchanged.
func (f *FieldEncryptor) DecryptPayload(ctx context.Context, v any) (any, error) {
	switch list := v.(type) {
	case []Record:
		dec, err := f.DecryptRecords(ctx, list)
		if err != nil {
			return nil, err
		}
		return dec, nil

	case []map[string]any:
		rs := make([]Record, len(list))
		for i, m := range list {
			rs[i] = m
		}
		dec, err := f.DecryptRecords(ctx, rs)
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, len(dec))
		for i, r := range dec {
			out[i] = r
		}
		return out, nil

	case []any:
		idx := make([]int, 0, len(list))
		rs := make([]Record, 0, len(list))
		for i, item := range list {
			switch m := item.(type) {
			case map[string]any:
				idx = append(idx, i)
				rs = append(rs, m)
			case Record:
				idx = append(idx, i)
				rs = append(rs, m)
			}
		}
		dec, err := f.DecryptRecords(ctx, rs)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(list))
		copy(out, list)
		for j, i := range idx {
			if _, ok := list[i].(Record); ok {
				out[i] = dec[j]
				continue
			}
			out[i] = map[string]any(dec[j])
		}
		return out, nil

	default:
		return v, nil
	}
}
