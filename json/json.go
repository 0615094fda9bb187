// Package json provides a JSON codec implementation.
//
// Numbers decode as json.Number so untouched record fields such as ages or
// identifiers survive a decrypt and re-encode unchanged.
package json

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/zoobzio/shroud"
)

// ContentType is the MIME type for JSON.
const ContentType = "application/json"

// jsonCodec implements shroud.Codec for JSON.
type jsonCodec struct{}

// New returns a JSON codec.
func New() shroud.Codec {
	return &jsonCodec{}
}

// ContentType returns the MIME type for JSON.
func (c *jsonCodec) ContentType() string {
	return ContentType
}

// Marshal encodes v as JSON.
func (c *jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes a single JSON value into v. Trailing data is an error.
func (c *jsonCodec) Unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("json: unexpected data after top-level value")
	}
	return nil
}
