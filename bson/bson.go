// Package bson provides a BSON codec implementation.
//
// A BSON document cannot be an array, so slices travel inside an envelope
// document {"data": [...]}, the same shape the records endpoint returns.
package bson

import (
	"reflect"

	"github.com/zoobzio/shroud"
	"go.mongodb.org/mongo-driver/bson"
)

// ContentType is the MIME type for BSON.
const ContentType = "application/bson"

// EnvelopeKey names the field that carries a list.
const EnvelopeKey = "data"

// bsonCodec implements shroud.Codec for BSON.
type bsonCodec struct{}

// New returns a BSON codec.
func New() shroud.Codec {
	return &bsonCodec{}
}

// ContentType returns the MIME type for BSON.
func (c *bsonCodec) ContentType() string {
	return ContentType
}

// Marshal encodes v as BSON. Slices are wrapped in the envelope.
func (c *bsonCodec) Marshal(v any) ([]byte, error) {
	if isList(reflect.TypeOf(v)) {
		return bson.Marshal(bson.M{EnvelopeKey: v})
	}
	return bson.Marshal(v)
}

// Unmarshal decodes BSON data into v. A pointer to a slice is filled from
// the envelope.
func (c *bsonCodec) Unmarshal(data []byte, v any) error {
	rt := reflect.TypeOf(v)
	if rt != nil && rt.Kind() == reflect.Ptr && isList(rt.Elem()) {
		var env struct {
			Data bson.RawValue `bson:"data"`
		}
		if err := bson.Unmarshal(data, &env); err != nil {
			return err
		}
		if len(env.Data.Value) == 0 {
			return nil
		}
		return env.Data.Unmarshal(v)
	}
	return bson.Unmarshal(data, v)
}

func isList(rt reflect.Type) bool {
	return rt != nil && rt.Kind() == reflect.Slice && rt.Elem().Kind() != reflect.Uint8
}
