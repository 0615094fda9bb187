package shroud

import (
	"bytes"
	"fmt"

	"github.com/tink-crypto/tink-go/v2/daead"
	"github.com/tink-crypto/tink-go/v2/insecurecleartextkeyset"
	"github.com/tink-crypto/tink-go/v2/keyset"
	aes_sivpb "github.com/tink-crypto/tink-go/v2/proto/aes_siv_go_proto"
	tinkpb "github.com/tink-crypto/tink-go/v2/proto/tink_go_proto"
	"github.com/tink-crypto/tink-go/v2/tink"

	"google.golang.org/protobuf/proto"
)

// AESSIVKeySize is the raw key size accepted by AESSIV.
const AESSIVKeySize = 64

const aesSivTypeURL = "type.googleapis.com/google.crypto.tink.AesSivKey"

// sivEncryptor implements deterministic authenticated encryption (AES-SIV).
type sivEncryptor struct {
	daead tink.DeterministicAEAD
}

// AESSIV returns a deterministic AEAD encryptor backed by tink's AES-SIV.
// Like RC5, equal plaintexts encrypt to equal ciphertexts, but tampering is
// detected on decrypt. Key must be 64 bytes.
func AESSIV(key []byte) (Encryptor, error) {
	if len(key) != AESSIVKeySize {
		return nil, fmt.Errorf("%w: aes-siv key must be %d bytes, got %d", ErrInvalidKey, AESSIVKeySize, len(key))
	}

	kh, err := sivKeyHandle(key)
	if err != nil {
		return nil, err
	}

	primitive, err := daead.New(kh)
	if err != nil {
		return nil, fmt.Errorf("creating deterministic aead: %w", err)
	}

	return &sivEncryptor{daead: primitive}, nil
}

func (e *sivEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	return e.daead.EncryptDeterministically(plaintext, nil)
}

func (e *sivEncryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	plaintext, err := e.daead.DecryptDeterministically(ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

// sivKeyHandle wraps raw key bytes in a single-key cleartext keyset.
func sivKeyHandle(key []byte) (*keyset.Handle, error) {
	serializedKey, err := proto.Marshal(&aes_sivpb.AesSivKey{
		Version:  0,
		KeyValue: key,
	})
	if err != nil {
		return nil, fmt.Errorf("serializing aes-siv key: %w", err)
	}

	ks := &tinkpb.Keyset{
		PrimaryKeyId: 1,
		Key: []*tinkpb.Keyset_Key{
			{
				KeyData: &tinkpb.KeyData{
					TypeUrl:         aesSivTypeURL,
					Value:           serializedKey,
					KeyMaterialType: tinkpb.KeyData_SYMMETRIC,
				},
				Status:           tinkpb.KeyStatusType_ENABLED,
				KeyId:            1,
				OutputPrefixType: tinkpb.OutputPrefixType_RAW,
			},
		},
	}

	serializedKeyset, err := proto.Marshal(ks)
	if err != nil {
		return nil, fmt.Errorf("serializing keyset: %w", err)
	}

	kh, err := insecurecleartextkeyset.Read(keyset.NewBinaryReader(bytes.NewReader(serializedKeyset)))
	if err != nil {
		return nil, fmt.Errorf("creating keyset handle: %w", err)
	}

	return kh, nil
}
