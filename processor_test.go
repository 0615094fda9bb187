package shroud

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// testCodec is a simple JSON codec for testing.
type testCodec struct{}

func (c *testCodec) ContentType() string { return "application/json" }

func (c *testCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (c *testCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// failingCodec fails every call.
type failingCodec struct{}

func (c *failingCodec) ContentType() string { return "application/x-fail" }

func (c *failingCodec) Marshal(any) ([]byte, error) { return nil, errors.New("boom") }

func (c *failingCodec) Unmarshal([]byte, any) error { return errors.New("boom") }

// PlainPatient has no encrypt tags.
type PlainPatient struct {
	ID   string `json:"id"`
	Name string `json:"nama"`
}

func (p PlainPatient) Clone() PlainPatient { return p }

// RC5Patient has RC5 tags.
type RC5Patient struct {
	ID        string `json:"id"`
	Name      string `json:"nama" encrypt:"rc5"`
	Diagnosis string `json:"diagnosa" encrypt:"rc5"`
}

func (p RC5Patient) Clone() RC5Patient { return p }

// AESPatient requires an AES encryptor.
type AESPatient struct {
	ID   string `json:"id"`
	Note string `json:"keluhan" encrypt:"aes"`
}

func (p AESPatient) Clone() AESPatient { return p }

// BadAlgoPatient names an unknown algorithm.
type BadAlgoPatient struct {
	Name string `json:"nama" encrypt:"rot13"`
}

func (p BadAlgoPatient) Clone() BadAlgoPatient { return p }

// BadKindPatient tags a field that cannot carry ciphertext.
type BadKindPatient struct {
	Age int `json:"umur" encrypt:"rc5"`
}

func (p BadKindPatient) Clone() BadKindPatient { return p }

// Ward nests tagged structs.
type Ward struct {
	Name   string            `json:"nama"`
	Head   RC5Patient        `json:"kepala"`
	Backup *RC5Patient       `json:"cadangan,omitempty"`
	Notes  []string          `json:"catatan" encrypt:"rc5"`
	Rooms  map[string]string `json:"kamar" encrypt:"rc5"`
	Scan   []byte            `json:"scan" encrypt:"rc5"`
}

func (w Ward) Clone() Ward {
	out := w
	if w.Backup != nil {
		b := *w.Backup
		out.Backup = &b
	}
	out.Notes = append([]string(nil), w.Notes...)
	if w.Rooms != nil {
		out.Rooms = make(map[string]string, len(w.Rooms))
		for k, v := range w.Rooms {
			out.Rooms[k] = v
		}
	}
	out.Scan = append([]byte(nil), w.Scan...)
	return out
}

var procTestKey = []byte("kunci-processor")

func newRC5Processor[T Cloner[T]](t *testing.T, opts ...ProcessorOption) *Processor[T] {
	t.Helper()

	opts = append([]ProcessorOption{WithEncryptor(EncryptRC5, RC5(procTestKey))}, opts...)
	proc, err := NewProcessor[T](&testCodec{}, opts...)
	if err != nil {
		t.Fatalf("NewProcessor() error: %v", err)
	}
	return proc
}

func TestNewProcessor(t *testing.T) {
	proc, err := NewProcessor[PlainPatient](&testCodec{})
	if err != nil {
		t.Fatalf("NewProcessor() error: %v", err)
	}
	if proc.Mode() != ModeStrict {
		t.Errorf("Mode() = %v, want strict", proc.Mode())
	}
	if err := proc.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestNewProcessor_InvalidTag(t *testing.T) {
	_, err := NewProcessor[BadAlgoPatient](&testCodec{})
	if !errors.Is(err, ErrInvalidTag) {
		t.Errorf("NewProcessor(unknown algo) error = %v, want ErrInvalidTag", err)
	}

	_, err = NewProcessor[BadKindPatient](&testCodec{})
	if !errors.Is(err, ErrInvalidTag) {
		t.Errorf("NewProcessor(int field) error = %v, want ErrInvalidTag", err)
	}

	var configErr *ConfigError
	if !errors.As(err, &configErr) || configErr.Field != "Age" {
		t.Errorf("NewProcessor() error = %#v, want *ConfigError for Age", err)
	}
}

func TestProcessor_Validate_MissingEncryptor(t *testing.T) {
	proc, err := NewProcessor[AESPatient](&testCodec{})
	if err != nil {
		t.Fatalf("NewProcessor() error: %v", err)
	}

	err = proc.Validate()
	if !errors.Is(err, ErrMissingEncryptor) {
		t.Fatalf("Validate() error = %v, want ErrMissingEncryptor", err)
	}

	var configErr *ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("Validate() error type = %T", err)
	}
	if configErr.Algorithm != "aes" || configErr.Field != "Note" {
		t.Errorf("ConfigError = %+v", configErr)
	}

	// Send fails with the cached validation error.
	if _, err := proc.Send(context.Background(), &AESPatient{}); !errors.Is(err, ErrMissingEncryptor) {
		t.Errorf("Send() error = %v, want ErrMissingEncryptor", err)
	}
}

func TestProcessor_SetEncryptor(t *testing.T) {
	proc, _ := NewProcessor[AESPatient](&testCodec{})

	enc, err := AES(aesTestKey)
	if err != nil {
		t.Fatalf("AES() error: %v", err)
	}
	if proc.SetEncryptor(EncryptAES, enc) != proc {
		t.Error("SetEncryptor() should return the processor")
	}
	if err := proc.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestProcessor_SendReceive(t *testing.T) {
	ctx := context.Background()
	proc := newRC5Processor[RC5Patient](t)

	original := &RC5Patient{ID: "rm-1", Name: "Siti", Diagnosis: "tifus"}
	data, err := proc.Send(ctx, original)
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	if original.Name != "Siti" {
		t.Error("Send() must not modify the original")
	}

	var wire RC5Patient
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("json.Unmarshal() error: %v", err)
	}
	s := NewStream(procTestKey)
	if wire.Name != s.Encode("Siti") {
		t.Errorf("wire nama = %q, want %q", wire.Name, s.Encode("Siti"))
	}
	if wire.ID != "rm-1" {
		t.Errorf("wire id = %q", wire.ID)
	}

	restored, err := proc.Receive(ctx, data)
	if err != nil {
		t.Fatalf("Receive() error: %v", err)
	}
	if *restored != *original {
		t.Errorf("Receive() = %+v, want %+v", *restored, *original)
	}
}

func TestProcessor_EmptyStringsStayEmpty(t *testing.T) {
	ctx := context.Background()
	proc := newRC5Processor[RC5Patient](t)

	data, err := proc.Send(ctx, &RC5Patient{ID: "rm-2"})
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if !strings.Contains(string(data), `"nama":""`) {
		t.Errorf("Send() = %s, want empty nama", data)
	}

	restored, err := proc.Receive(ctx, data)
	if err != nil {
		t.Fatalf("Receive() error: %v", err)
	}
	if restored.Name != "" {
		t.Errorf("Receive() nama = %q", restored.Name)
	}
}

func TestProcessor_SendNil(t *testing.T) {
	proc := newRC5Processor[RC5Patient](t)

	data, err := proc.Send(context.Background(), nil)
	if err != nil {
		t.Fatalf("Send(nil) error: %v", err)
	}
	if string(data) != "null" {
		t.Errorf("Send(nil) = %s, want null", data)
	}
}

func TestProcessor_ReceiveStrict(t *testing.T) {
	proc := newRC5Processor[RC5Patient](t)

	_, err := proc.Receive(context.Background(), []byte(`{"nama":"Budi Santoso!"}`))
	if !errors.Is(err, ErrDecrypt) || !errors.Is(err, ErrInvalidEncoding) {
		t.Fatalf("Receive() error = %v, want ErrDecrypt wrapping ErrInvalidEncoding", err)
	}

	var te *TransformError
	if !errors.As(err, &te) || te.Field != "Name" {
		t.Errorf("Receive() error = %#v, want TransformError for Name", err)
	}
}

func TestProcessor_ReceiveCompat(t *testing.T) {
	proc := newRC5Processor[RC5Patient](t, WithDecodeMode(ModeCompat))
	if proc.Mode() != ModeCompat {
		t.Fatalf("Mode() = %v, want compat", proc.Mode())
	}

	s := NewStream(procTestKey)
	input := `{"id":"rm-3","nama":"Budi Santoso!","diagnosa":"` + s.Encode("flu") + `"}`

	restored, err := proc.Receive(context.Background(), []byte(input))
	if err != nil {
		t.Fatalf("Receive() error: %v", err)
	}
	if restored.Name != "Budi Santoso!" {
		t.Errorf("nama = %q, want input kept", restored.Name)
	}
	if restored.Diagnosis != "flu" {
		t.Errorf("diagnosa = %q, want flu", restored.Diagnosis)
	}
}

func TestProcessor_ReceiveAll(t *testing.T) {
	ctx := context.Background()
	proc := newRC5Processor[RC5Patient](t)
	s := NewStream(procTestKey)

	input := `[{"id":"a","nama":"` + s.Encode("Ani") + `"},{"id":"b","nama":"` + s.Encode("Budi") + `"}]`
	list, err := proc.ReceiveAll(ctx, []byte(input))
	if err != nil {
		t.Fatalf("ReceiveAll() error: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Ani" || list[1].Name != "Budi" {
		t.Errorf("ReceiveAll() = %+v", list)
	}

	_, err = proc.ReceiveAll(ctx, []byte(`[{"nama":"`+s.Encode("ok")+`"},{"nama":"!!"}]`))
	if !errors.Is(err, ErrDecrypt) {
		t.Errorf("ReceiveAll(bad element) error = %v, want ErrDecrypt", err)
	}
	if err != nil && !strings.Contains(err.Error(), "element 1") {
		t.Errorf("ReceiveAll() error = %q, want element index", err)
	}
}

func TestProcessor_CodecErrors(t *testing.T) {
	proc, err := NewProcessor[RC5Patient](&failingCodec{}, WithEncryptor(EncryptRC5, RC5(procTestKey)))
	if err != nil {
		t.Fatalf("NewProcessor() error: %v", err)
	}

	if _, err := proc.Send(context.Background(), &RC5Patient{}); !errors.Is(err, ErrMarshal) {
		t.Errorf("Send() error = %v, want ErrMarshal", err)
	}
	if _, err := proc.Receive(context.Background(), []byte("x")); !errors.Is(err, ErrUnmarshal) {
		t.Errorf("Receive() error = %v, want ErrUnmarshal", err)
	}

	var codecErr *CodecError
	_, err = proc.ReceiveAll(context.Background(), []byte("x"))
	if !errors.As(err, &codecErr) {
		t.Errorf("ReceiveAll() error type = %T, want *CodecError", err)
	}
}

func TestProcessor_NestedAndContainers(t *testing.T) {
	ctx := context.Background()
	proc := newRC5Processor[Ward](t)

	original := &Ward{
		Name:   "Melati",
		Head:   RC5Patient{ID: "h", Name: "Dewi"},
		Backup: &RC5Patient{ID: "b", Diagnosis: "asma"},
		Notes:  []string{"pagi", "", "malam"},
		Rooms:  map[string]string{"101": "Ani", "102": ""},
		Scan:   []byte{0x00, 0xFF, 0x10},
	}

	data, err := proc.Send(ctx, original)
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if strings.Contains(string(data), "Dewi") || strings.Contains(string(data), "asma") {
		t.Errorf("nested fields left in plaintext: %s", data)
	}
	if !strings.Contains(string(data), "Melati") {
		t.Errorf("untagged field missing: %s", data)
	}
	if original.Notes[0] != "pagi" || original.Rooms["101"] != "Ani" || original.Scan[1] != 0xFF {
		t.Error("Send() modified the original containers")
	}

	restored, err := proc.Receive(ctx, data)
	if err != nil {
		t.Fatalf("Receive() error: %v", err)
	}
	if restored.Head.Name != "Dewi" || restored.Backup == nil || restored.Backup.Diagnosis != "asma" {
		t.Errorf("nested = %+v / %+v", restored.Head, restored.Backup)
	}
	if strings.Join(restored.Notes, ",") != "pagi,,malam" {
		t.Errorf("Notes = %v", restored.Notes)
	}
	if restored.Rooms["101"] != "Ani" || restored.Rooms["102"] != "" {
		t.Errorf("Rooms = %v", restored.Rooms)
	}
	if string(restored.Scan) != string(original.Scan) {
		t.Errorf("Scan = %v", restored.Scan)
	}
}

func TestProcessor_NilNestedPointer(t *testing.T) {
	ctx := context.Background()
	proc := newRC5Processor[Ward](t)

	data, err := proc.Send(ctx, &Ward{Name: "Mawar"})
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	restored, err := proc.Receive(ctx, data)
	if err != nil {
		t.Fatalf("Receive() error: %v", err)
	}
	if restored.Backup != nil {
		t.Errorf("Backup = %+v, want nil", restored.Backup)
	}
}

func TestProcessor_Concurrent(t *testing.T) {
	ctx := context.Background()
	proc := newRC5Processor[RC5Patient](t)

	done := make(chan error, 16)
	for i := 0; i < 16; i++ {
		go func() {
			p := &RC5Patient{Name: "Siti", Diagnosis: "flu"}
			data, err := proc.Send(ctx, p)
			if err != nil {
				done <- err
				return
			}
			_, err = proc.Receive(ctx, data)
			done <- err
		}()
		if i == 8 {
			proc.SetEncryptor(EncryptRC5, RC5(procTestKey))
		}
	}
	for i := 0; i < 16; i++ {
		if err := <-done; err != nil {
			t.Errorf("concurrent Send/Receive error: %v", err)
		}
	}
}
