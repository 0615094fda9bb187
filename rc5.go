package shroud

import (
	"crypto/cipher"
	"encoding/binary"
	"math/bits"
)

// RC5 parameters. The word size and round count are fixed; only the key
// length varies.
const (
	WordSize  = 32
	Rounds    = 12
	BlockSize = 8

	// P32 and Q32 are the RC5-32 magic constants (odd integers nearest to
	// (e-2)*2^32 and (phi-1)*2^32).
	P32 uint32 = 0xB7E15163
	Q32 uint32 = 0x9E3779B9

	tableSize = 2 * (Rounds + 1)
)

// Table is the expanded key table S.
type Table [tableSize]uint32

// ExpandKey derives the RC5-32/12 key table from key. Any key length is
// accepted, including zero.
func ExpandKey(key []byte) Table {
	// An empty key still mixes against a single zero word.
	l := BytesToWords(key)
	if len(l) == 0 {
		l = []uint32{0}
	}

	var s Table
	s[0] = P32
	for i := 1; i < tableSize; i++ {
		s[i] = s[i-1] + Q32
	}

	v := 3 * max(tableSize, len(l))

	var a, b uint32
	i, j := 0, 0
	for k := 0; k < v; k++ {
		a = bits.RotateLeft32(s[i]+a+b, 3)
		s[i] = a

		b = bits.RotateLeft32(l[j]+a+b, int((a+b)%WordSize))
		l[j] = b

		i = (i + 1) % tableSize
		j = (j + 1) % len(l)
	}

	return s
}

// Cipher is an RC5-32/12/b block cipher. The table is computed once in
// NewCipher and never written again, so a Cipher may be shared between
// goroutines.
type Cipher struct {
	s Table
}

var _ cipher.Block = (*Cipher)(nil)

// NewCipher expands key into a ready-to-use cipher.
func NewCipher(key []byte) *Cipher {
	return &Cipher{s: ExpandKey(key)}
}

// Table returns a copy of the expanded key table.
func (c *Cipher) Table() Table {
	return c.s
}

// BlockSize returns the cipher's block size in bytes.
func (c *Cipher) BlockSize() int { return BlockSize }

// EncryptBlock encrypts the block (a, b).
func (c *Cipher) EncryptBlock(a, b uint32) (uint32, uint32) {
	a += c.s[0]
	b += c.s[1]

	for i := 1; i <= Rounds; i++ {
		a = bits.RotateLeft32(a^b, int(b%WordSize)) + c.s[2*i]
		b = bits.RotateLeft32(b^a, int(a%WordSize)) + c.s[2*i+1]
	}

	return a, b
}

// DecryptBlock inverts EncryptBlock.
func (c *Cipher) DecryptBlock(a, b uint32) (uint32, uint32) {
	for i := Rounds; i >= 1; i-- {
		b = bits.RotateLeft32(b-c.s[2*i+1], -int(a%WordSize)) ^ a
		a = bits.RotateLeft32(a-c.s[2*i], -int(b%WordSize)) ^ b
	}

	b -= c.s[1]
	a -= c.s[0]

	return a, b
}

// Encrypt encrypts the first block in src into dst.
// Dst and src must overlap entirely or not at all.
func (c *Cipher) Encrypt(dst, src []byte) {
	if len(src) < BlockSize {
		panic("shroud: input not full block")
	}
	if len(dst) < BlockSize {
		panic("shroud: output not full block")
	}

	a, b := c.EncryptBlock(
		binary.LittleEndian.Uint32(src[0:4]),
		binary.LittleEndian.Uint32(src[4:8]),
	)
	binary.LittleEndian.PutUint32(dst[0:4], a)
	binary.LittleEndian.PutUint32(dst[4:8], b)
}

// Decrypt decrypts the first block in src into dst.
// Dst and src must overlap entirely or not at all.
func (c *Cipher) Decrypt(dst, src []byte) {
	if len(src) < BlockSize {
		panic("shroud: input not full block")
	}
	if len(dst) < BlockSize {
		panic("shroud: output not full block")
	}

	a, b := c.DecryptBlock(
		binary.LittleEndian.Uint32(src[0:4]),
		binary.LittleEndian.Uint32(src[4:8]),
	)
	binary.LittleEndian.PutUint32(dst[0:4], a)
	binary.LittleEndian.PutUint32(dst[4:8], b)
}
