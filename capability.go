package shroud

// EncryptAlgo represents a supported encryption algorithm.
// Use these constants in struct tags: `encrypt:"rc5"`
type EncryptAlgo string

const (
	// EncryptRC5 uses the legacy RC5-32/12 block encryption (no nonce, no tag).
	EncryptRC5 EncryptAlgo = "rc5"

	// EncryptAES uses AES-GCM with a random nonce per value.
	EncryptAES EncryptAlgo = "aes"

	// EncryptAESSIV uses deterministic AES-SIV.
	EncryptAESSIV EncryptAlgo = "aes-siv"
)

var validEncryptAlgos = map[EncryptAlgo]bool{
	EncryptRC5:    true,
	EncryptAES:    true,
	EncryptAESSIV: true,
}

// IsValidEncryptAlgo returns true if the algorithm is a known encryption algorithm.
func IsValidEncryptAlgo(algo EncryptAlgo) bool {
	return validEncryptAlgos[algo]
}
