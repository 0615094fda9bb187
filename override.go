package shroud

// Override interfaces let a type bypass reflection-based processing. When
// a type implements one, the Processor calls it instead of walking tagged
// fields. Code generators can emit these from the encrypt tags.

// Encryptable bypasses reflection on Send.
type Encryptable interface {
	// Encrypt transforms the receiver's fields that require encryption.
	// The encryptors map contains all registered encryptors keyed by algorithm.
	// The receiver is a clone, so mutations are safe.
	Encrypt(encryptors map[EncryptAlgo]Encryptor) error
}

// Decryptable bypasses reflection on Receive and ReceiveAll.
type Decryptable interface {
	// Decrypt transforms the receiver's fields that require decryption.
	// Called on freshly unmarshaled data.
	Decrypt(encryptors map[EncryptAlgo]Encryptor) error
}
