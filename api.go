// Package shroud obscures selected string fields of structured records
// before they cross a network boundary and restores them on read.
//
// The engine is RC5-32/12/b: 32-bit words, 12 rounds and a key of any
// length. Values are padded, encrypted block by block with no IV or
// authentication tag and rendered as standard base64. The layout is fixed
// for compatibility with existing stored data, so equal plaintexts encrypt
// to equal ciphertexts under the same key.
//
// # Layers
//
//   - Cipher: a single RC5 block; also a crypto/cipher.Block
//   - Stream: padding, block chaining and transport encoding of one value
//   - FieldEncryptor: the allow-listed string fields of a Record
//   - Processor: struct fields tagged encrypt:"<algo>" behind a wire Codec
//
// # Basic Usage
//
//	enc := shroud.NewFieldEncryptor(key)
//
//	out := enc.EncryptRecord(ctx, shroud.Record{
//	    "nama":     "Budi",
//	    "diagnosa": "flu",
//	    "umur":     42,
//	})
//
//	rec, err := enc.DecryptRecord(ctx, out)
//
// # Decode Modes
//
// ModeStrict reports ciphertext that is not valid base64 or whose padding
// does not verify as a *DecodeError. ModeCompat keeps the legacy behaviour:
// the field takes DecodeError.Fallback and SignalFieldFallback is emitted.
//
// # Typed Records
//
//	type Patient struct {
//	    ID        string `json:"id"`
//	    Name      string `json:"nama" encrypt:"rc5"`
//	    Diagnosis string `json:"diagnosa" encrypt:"rc5"`
//	}
//
//	func (p Patient) Clone() Patient { return p }
//
//	proc, _ := shroud.NewProcessor[Patient](json.New())
//	proc.SetEncryptor(shroud.EncryptRC5, shroud.RC5(key))
//
//	data, _ := proc.Send(ctx, &patient)
//	patient, _ := proc.Receive(ctx, data)
//
// # Encryption Algorithms
//
//   - RC5(key) - legacy RC5-32/12, deterministic, unauthenticated
//   - AES(key) - AES-GCM with a random nonce per value
//   - AESSIV(key) - deterministic AES-SIV (64-byte key)
//
// # Codec Providers
//
//   - json - JSON encoding (application/json)
//   - xml - XML encoding (application/xml)
//   - yaml - YAML encoding (application/yaml)
//   - msgpack - MessagePack encoding (application/msgpack)
//   - bson - BSON encoding (application/bson)
package shroud

// Cloner allows types to provide deep copy logic.
// Implementing this interface is required for use with Processor.
//
// The Clone method must return a copy where modifications to the clone do
// not affect the original value. For simple value types Clone can return
// the receiver:
//
//	func (p Patient) Clone() Patient { return p }
//
// Types holding slices or maps of tagged fields must copy them:
//
//	func (v Visit) Clone() Visit {
//	    notes := make([]string, len(v.Notes))
//	    copy(notes, v.Notes)
//	    return Visit{ID: v.ID, Notes: notes}
//	}
type Cloner[T any] interface {
	Clone() T
}

// Codec provides content-type aware marshaling.
type Codec interface {
	// ContentType returns the MIME type for this codec (e.g., "application/json").
	ContentType() string

	// Marshal encodes v into bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into v.
	Unmarshal(data []byte, v any) error
}
