// Package xml provides an XML codec implementation.
//
// A slice marshals as a sequence of sibling elements and unmarshals back
// from one, so record lists survive a round trip.
package xml

import (
	"bytes"
	"encoding/xml"
	"io"
	"reflect"

	"github.com/zoobzio/shroud"
)

// ContentType is the MIME type for XML.
const ContentType = "application/xml"

// xmlCodec implements shroud.Codec for XML.
type xmlCodec struct{}

// New returns an XML codec.
func New() shroud.Codec {
	return &xmlCodec{}
}

// ContentType returns the MIME type for XML.
func (c *xmlCodec) ContentType() string {
	return ContentType
}

// Marshal encodes v as XML.
func (c *xmlCodec) Marshal(v any) ([]byte, error) {
	return xml.Marshal(v)
}

// Unmarshal decodes XML data into v.
func (c *xmlCodec) Unmarshal(data []byte, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		if list := rv.Elem(); list.Kind() == reflect.Slice && list.Type().Elem().Kind() != reflect.Uint8 {
			return unmarshalList(data, list)
		}
	}
	return xml.Unmarshal(data, v)
}

// unmarshalList decodes every top-level element into a new slice element.
func unmarshalList(data []byte, list reflect.Value) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	out := reflect.MakeSlice(list.Type(), 0, 0)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		elem := reflect.New(list.Type().Elem())
		if err := dec.DecodeElement(elem.Interface(), &start); err != nil {
			return err
		}
		out = reflect.Append(out, elem.Elem())
	}

	list.Set(out)
	return nil
}
