// Package testing provides test utilities for shroud.
//
// Import it under an alias to avoid shadowing the standard library:
//
//	import shroudtest "github.com/zoobzio/shroud/testing"
package testing

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/zoobzio/shroud"
	"gopkg.in/yaml.v3"
)

// TB is the subset of testing.TB the helpers need.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// TestKey returns the RC5 key used across tests.
func TestKey() []byte {
	return []byte("kunci-rahasia-klinik")
}

// OtherKey returns a key distinct from TestKey.
func OtherKey() []byte {
	return []byte("kunci-lain")
}

// AESKey returns a valid 32-byte AES key for testing.
func AESKey() []byte {
	return []byte("32-byte-key-for-aes-256-encrypt!")
}

// SIVKey returns a valid 64-byte AES-SIV key for testing.
func SIVKey() []byte {
	key := make([]byte, shroud.AESSIVKeySize)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

// TestEncryptors returns one encryptor per supported algorithm.
func TestEncryptors(tb TB) map[shroud.EncryptAlgo]shroud.Encryptor {
	tb.Helper()

	aes, err := shroud.AES(AESKey())
	if err != nil {
		tb.Fatalf("AES() error: %v", err)
	}
	siv, err := shroud.AESSIV(SIVKey())
	if err != nil {
		tb.Fatalf("AESSIV() error: %v", err)
	}

	return map[shroud.EncryptAlgo]shroud.Encryptor{
		shroud.EncryptRC5:    shroud.RC5(TestKey()),
		shroud.EncryptAES:    aes,
		shroud.EncryptAESSIV: siv,
	}
}

// ProcessorOptions registers every encryptor from TestEncryptors.
func ProcessorOptions(tb TB) []shroud.ProcessorOption {
	tb.Helper()

	var opts []shroud.ProcessorOption
	for algo, enc := range TestEncryptors(tb) {
		opts = append(opts, shroud.WithEncryptor(algo, enc))
	}
	return opts
}

// SampleRecord returns a medical record with every default field set plus
// fields that must never be touched.
func SampleRecord() shroud.Record {
	return shroud.Record{
		"id":                     "rm-0001",
		shroud.FieldName:         "Siti Aminah",
		shroud.FieldAddress:      "Jl. Merdeka No. 10, Bandung",
		shroud.FieldPhone:        "081234567890",
		shroud.FieldComplaint:    "demam tiga hari",
		shroud.FieldDiagnosis:    "demam berdarah",
		shroud.FieldProcedure:    "rawat inap",
		shroud.FieldPrescription: "paracetamol 500mg",
		shroud.FieldPhysician:    "dr. Rahman",
		"tanggal":                "2024-03-01",
		"umur":                   34,
	}
}

// SampleRecords returns n copies of SampleRecord with distinct ids and names.
func SampleRecords(n int) []shroud.Record {
	out := make([]shroud.Record, n)
	for i := range out {
		r := SampleRecord()
		r["id"] = fmt.Sprintf("rm-%04d", i+1)
		r[shroud.FieldName] = fmt.Sprintf("Pasien %d", i+1)
		out[i] = r
	}
	return out
}

// Patient is a typed record with RC5-tagged fields.
type Patient struct {
	ID        string `json:"id" xml:"id" yaml:"id" bson:"id"`
	Name      string `json:"nama" xml:"nama" yaml:"nama" bson:"nama" encrypt:"rc5"`
	Phone     string `json:"nomor_hp" xml:"nomor_hp" yaml:"nomor_hp" bson:"nomor_hp" encrypt:"rc5"`
	Diagnosis string `json:"diagnosa" xml:"diagnosa" yaml:"diagnosa" bson:"diagnosa" encrypt:"rc5"`
	Age       int    `json:"umur" xml:"umur" yaml:"umur" bson:"umur"`
}

// Clone implements Cloner[Patient].
func (p Patient) Clone() Patient { return p }

// SamplePatient returns a populated Patient.
func SamplePatient() Patient {
	return Patient{
		ID:        "rm-0001",
		Name:      "Siti Aminah",
		Phone:     "081234567890",
		Diagnosis: "demam berdarah",
		Age:       34,
	}
}

// Visit mixes algorithms and container fields.
type Visit struct {
	ID           string            `json:"id"`
	Complaint    string            `json:"keluhan" encrypt:"aes"`
	Procedures   []string          `json:"tindakan" encrypt:"rc5"`
	Prescription map[string]string `json:"resep_obat" encrypt:"aes-siv"`
	Attachment   []byte            `json:"lampiran" encrypt:"aes"`
	Physician    *Physician        `json:"dokter,omitempty"`
}

// Physician is nested inside Visit.
type Physician struct {
	Name string `json:"nama" encrypt:"rc5"`
	SIP  string `json:"sip"`
}

// Clone implements Cloner[Visit].
func (v Visit) Clone() Visit {
	out := v
	if v.Procedures != nil {
		out.Procedures = append([]string(nil), v.Procedures...)
	}
	if v.Prescription != nil {
		out.Prescription = make(map[string]string, len(v.Prescription))
		for k, val := range v.Prescription {
			out.Prescription[k] = val
		}
	}
	if v.Attachment != nil {
		out.Attachment = append([]byte(nil), v.Attachment...)
	}
	if v.Physician != nil {
		p := *v.Physician
		out.Physician = &p
	}
	return out
}

// BlockVector is one RC5 single-block test vector. Key, plaintext and
// ciphertext are hex byte strings.
type BlockVector struct {
	Name       string `yaml:"name"`
	Key        string `yaml:"key"`
	Plaintext  string `yaml:"plaintext"`
	Ciphertext string `yaml:"ciphertext"`
}

// KeyBytes decodes the hex key.
func (v BlockVector) KeyBytes() ([]byte, error) {
	return hex.DecodeString(v.Key)
}

// PlaintextBytes decodes the hex plaintext block.
func (v BlockVector) PlaintextBytes() ([]byte, error) {
	return hex.DecodeString(v.Plaintext)
}

// CiphertextBytes decodes the hex ciphertext block.
func (v BlockVector) CiphertextBytes() ([]byte, error) {
	return hex.DecodeString(v.Ciphertext)
}

// Vectors is the golden vector file layout.
type Vectors struct {
	Blocks []BlockVector `yaml:"blocks"`
}

// LoadVectors reads a golden vector file.
func LoadVectors(path string) (*Vectors, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var v Vectors
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &v, nil
}
