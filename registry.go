package shroud

import (
	"reflect"
	"sync"
)

// processorKey identifies a shared processor. Strict and compat processors
// for the same type and codec are distinct.
type processorKey struct {
	typ         reflect.Type
	contentType string
	mode        Mode
}

var (
	processors   = make(map[processorKey]any)
	processorsMu sync.RWMutex
)

// Use returns the shared processor for T, codec and the decode mode in opts,
// building it on first use. Encryptors passed in opts only apply when the
// processor is built; use SetEncryptor to change them afterwards.
func Use[T Cloner[T]](codec Codec, opts ...ProcessorOption) (*Processor[T], error) {
	key := processorKey{
		typ:         reflect.TypeFor[T](),
		contentType: codec.ContentType(),
		mode:        resolveConfig(opts).mode,
	}

	processorsMu.RLock()
	cached, ok := processors[key]
	processorsMu.RUnlock()
	if ok {
		return cached.(*Processor[T]), nil
	}

	processorsMu.Lock()
	defer processorsMu.Unlock()

	if cached, ok := processors[key]; ok {
		return cached.(*Processor[T]), nil
	}

	p, err := NewProcessor[T](codec, opts...)
	if err != nil {
		return nil, err
	}

	processors[key] = p
	return p, nil
}

// Reset drops every shared processor. Tests call it for isolation.
func Reset() {
	processorsMu.Lock()
	defer processorsMu.Unlock()
	processors = make(map[processorKey]any)
}
