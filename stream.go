package shroud

import "errors"

// Mode selects how decode failures surface.
type Mode int

const (
	// ModeStrict returns a *DecodeError for malformed or foreign ciphertext.
	ModeStrict Mode = iota

	// ModeCompat reproduces the legacy behaviour: a value that cannot be
	// decoded is replaced by DecodeError.Fallback and no error is returned.
	ModeCompat
)

func (m Mode) String() string {
	switch m {
	case ModeStrict:
		return "strict"
	case ModeCompat:
		return "compat"
	default:
		return "unknown"
	}
}

// Stream chains the RC5 block cipher over arbitrary-length buffers and
// renders the result as base64. Blocks are processed independently with no
// IV or authentication tag, so equal plaintext always yields equal
// ciphertext under the same key.
type Stream struct {
	block *Cipher
}

var _ Encryptor = (*Stream)(nil)

// NewStream returns a Stream keyed with key.
func NewStream(key []byte) *Stream {
	return &Stream{block: NewCipher(key)}
}

// Cipher returns the underlying block cipher.
func (s *Stream) Cipher() *Cipher {
	return s.block
}

// Seal pads plaintext and encrypts it block by block.
func (s *Stream) Seal(plaintext []byte) []byte {
	words := BytesToWords(Pad(plaintext))
	out := make([]uint32, 0, len(words)+1)

	for i := 0; i < len(words); i += 2 {
		var b uint32
		if i+1 < len(words) {
			b = words[i+1]
		}
		ea, eb := s.block.EncryptBlock(words[i], b)
		out = append(out, ea, eb)
	}

	return WordsToBytes(out)
}

// Open decrypts ciphertext and strips its padding. A trailing partial block
// is zero-extended before decryption. When the padding does not verify, Open
// returns the decrypted bytes unchanged together with a *DecodeError.
func (s *Stream) Open(ciphertext []byte) ([]byte, error) {
	words := BytesToWords(ciphertext)
	out := make([]uint32, 0, len(words)+1)

	for i := 0; i < len(words); i += 2 {
		var b uint32
		if i+1 < len(words) {
			b = words[i+1]
		}
		da, db := s.block.DecryptBlock(words[i], b)
		out = append(out, da, db)
	}

	raw := WordsToBytes(out)
	plaintext, err := unpad(raw)
	if err != nil {
		return raw, &DecodeError{Err: ErrPaddingMismatch, Raw: raw}
	}
	return plaintext, nil
}

// Encrypt implements Encryptor.
func (s *Stream) Encrypt(plaintext []byte) ([]byte, error) {
	return s.Seal(plaintext), nil
}

// Decrypt implements Encryptor.
func (s *Stream) Decrypt(ciphertext []byte) ([]byte, error) {
	return s.Open(ciphertext)
}

// Encode encrypts plaintext into transport text. The empty string encodes
// to the empty string.
func (s *Stream) Encode(plaintext string) string {
	if plaintext == "" {
		return ""
	}
	return EncodeTransport(s.Seal([]byte(plaintext)))
}

// Decode restores a value produced by Encode. The empty string decodes to
// the empty string. Failures are reported as *DecodeError.
func (s *Stream) Decode(text string) (string, error) {
	if text == "" {
		return "", nil
	}

	ciphertext, err := DecodeTransport(text)
	if err != nil {
		return "", &DecodeError{Err: ErrInvalidEncoding, Input: text, Cause: err}
	}

	plaintext, err := s.Open(ciphertext)
	if err != nil {
		de := err.(*DecodeError) //nolint:errorlint // Open only returns *DecodeError
		de.Input = text
		return "", de
	}

	return string(plaintext), nil
}

// DecodeLenient is Decode with the legacy silent fallback: malformed
// transport text comes back unchanged and a padding mismatch yields the raw
// decrypted bytes as text.
func (s *Stream) DecodeLenient(text string) string {
	plaintext, err := s.Decode(text)
	if err != nil {
		return fallback(err, text)
	}
	return plaintext
}

// DecodeMode dispatches to Decode or DecodeLenient. In ModeCompat the error
// is still returned alongside the fallback value so callers can observe it.
func (s *Stream) DecodeMode(text string, mode Mode) (string, error) {
	plaintext, err := s.Decode(text)
	if err == nil {
		return plaintext, nil
	}
	if mode == ModeCompat {
		return fallback(err, text), err
	}
	return "", err
}

// fallback returns the legacy value for a decode failure on input.
func fallback(err error, input string) string {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Fallback()
	}
	return input
}
