package shroud

import "bytes"

// Pad appends between 1 and BlockSize bytes, each holding the pad length.
// Input that is already block aligned receives a full extra block.
func Pad(b []byte) []byte {
	p := BlockSize - len(b)%BlockSize
	out := make([]byte, len(b), len(b)+p)
	copy(out, b)
	return append(out, bytes.Repeat([]byte{byte(p)}, p)...)
}

// Unpad removes padding added by Pad. Input that does not end in valid
// padding is returned unchanged.
func Unpad(b []byte) []byte {
	out, err := unpad(b)
	if err != nil {
		return b
	}
	return out
}

// unpad is the strict form of Unpad.
func unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, ErrPaddingMismatch
	}

	p := int(b[len(b)-1])
	if p == 0 || p > BlockSize || p > len(b) {
		return nil, ErrPaddingMismatch
	}

	for _, v := range b[len(b)-p:] {
		if int(v) != p {
			return nil, ErrPaddingMismatch
		}
	}

	return b[:len(b)-p], nil
}
