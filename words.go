package shroud

import "encoding/binary"

// BytesToWords packs b into little-endian 32-bit words. A trailing partial
// group is zero-filled in its high-order bytes.
func BytesToWords(b []byte) []uint32 {
	words := make([]uint32, (len(b)+3)/4)
	for i := range words {
		var chunk [4]byte
		copy(chunk[:], b[4*i:])
		words[i] = binary.LittleEndian.Uint32(chunk[:])
	}
	return words
}

// WordsToBytes unpacks words into 4*len(words) little-endian bytes. Callers
// that packed a partial group must track the original length themselves.
func WordsToBytes(words []uint32) []byte {
	b := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[4*i:], w)
	}
	return b
}
