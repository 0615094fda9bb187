package shroud

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

var fieldKey = []byte("kunci-rekam-medis")

func sampleRecord() Record {
	return Record{
		"id":              "rm-0001",
		FieldName:         "Siti Aminah",
		FieldAddress:      "Jl. Merdeka No. 10",
		FieldPhone:        "081234567890",
		FieldComplaint:    "demam",
		FieldDiagnosis:    "demam berdarah",
		FieldProcedure:    "rawat inap",
		FieldPrescription: "paracetamol",
		FieldPhysician:    "dr. Rahman",
		"tanggal":         "2024-03-01",
		"umur":            34,
	}
}

func TestDefaultFields(t *testing.T) {
	want := []string{"nama", "alamat", "nomor_hp", "keluhan", "diagnosa", "tindakan", "resep_obat", "dokter_penanggung_jawab"}
	got := DefaultFields()
	if len(got) != len(want) {
		t.Fatalf("DefaultFields() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("DefaultFields()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	got[0] = "changed"
	if DefaultFields()[0] != "nama" {
		t.Error("DefaultFields() should return a fresh slice")
	}
}

func TestFieldEncryptor_Options(t *testing.T) {
	f := NewFieldEncryptor(fieldKey, WithFields("a", "b"), WithMode(ModeCompat), WithParallel(0))

	if got := f.Fields(); len(got) != 2 || got[0] != "a" {
		t.Errorf("Fields() = %v", got)
	}
	if f.Mode() != ModeCompat {
		t.Errorf("Mode() = %v", f.Mode())
	}
	if f.parallel != 1 {
		t.Errorf("parallel = %d, want 1", f.parallel)
	}
	if f.Stream() == nil {
		t.Error("Stream() should not be nil")
	}

	f.Fields()[0] = "z"
	if f.Fields()[0] != "a" {
		t.Error("Fields() should return a copy")
	}
}

func TestFieldEncryptor_EncryptRecord(t *testing.T) {
	ctx := context.Background()
	f := NewFieldEncryptor(fieldKey)
	s := NewStream(fieldKey)
	in := sampleRecord()

	out := f.EncryptRecord(ctx, in)

	for _, name := range DefaultFields() {
		want := s.Encode(in[name].(string))
		if out[name] != want {
			t.Errorf("%s = %v, want %q", name, out[name], want)
		}
	}
	for _, name := range []string{"id", "tanggal", "umur"} {
		if out[name] != in[name] {
			t.Errorf("%s changed: %v -> %v", name, in[name], out[name])
		}
	}
	if in[FieldName] != "Siti Aminah" {
		t.Error("EncryptRecord() must not modify its input")
	}
}

func TestFieldEncryptor_FieldScoping(t *testing.T) {
	ctx := context.Background()
	f := NewFieldEncryptor(fieldKey)

	in := Record{
		FieldName:      "",
		FieldAddress:   nil,
		FieldPhone:     81234567890,
		FieldDiagnosis: map[string]any{"kode": "A91"},
		"catatan":      "bukan field rahasia",
	}
	out := f.EncryptRecord(ctx, in)

	if out[FieldName] != "" {
		t.Errorf("empty string changed to %v", out[FieldName])
	}
	if out[FieldAddress] != nil {
		t.Errorf("nil changed to %v", out[FieldAddress])
	}
	if out[FieldPhone] != 81234567890 {
		t.Errorf("number changed to %v", out[FieldPhone])
	}
	if _, ok := out[FieldDiagnosis].(map[string]any); !ok {
		t.Errorf("object changed to %v", out[FieldDiagnosis])
	}
	if out["catatan"] != "bukan field rahasia" {
		t.Errorf("non-listed field changed to %v", out["catatan"])
	}
	if _, ok := out[FieldComplaint]; ok {
		t.Error("absent field should stay absent")
	}
}

func TestFieldEncryptor_CustomFields(t *testing.T) {
	ctx := context.Background()
	f := NewFieldEncryptor(fieldKey, WithFields("catatan"))

	out := f.EncryptRecord(ctx, Record{"catatan": "rahasia", FieldName: "Siti"})
	if out["catatan"] == "rahasia" {
		t.Error("custom field should be encrypted")
	}
	if out[FieldName] != "Siti" {
		t.Error("default field should be left alone when the list is replaced")
	}
}

func TestFieldEncryptor_NilRecord(t *testing.T) {
	ctx := context.Background()
	f := NewFieldEncryptor(fieldKey)

	if f.EncryptRecord(ctx, nil) != nil {
		t.Error("EncryptRecord(nil) should be nil")
	}
	out, err := f.DecryptRecord(ctx, nil)
	if err != nil || out != nil {
		t.Errorf("DecryptRecord(nil) = %v, %v", out, err)
	}
}

func TestFieldEncryptor_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f := NewFieldEncryptor(fieldKey)
	in := sampleRecord()

	out, err := f.DecryptRecord(ctx, f.EncryptRecord(ctx, in))
	if err != nil {
		t.Fatalf("DecryptRecord() error: %v", err)
	}
	for k, v := range in {
		if out[k] != v {
			t.Errorf("%s = %v, want %v", k, out[k], v)
		}
	}
}

func TestFieldEncryptor_DecryptStrict(t *testing.T) {
	ctx := context.Background()
	f := NewFieldEncryptor(fieldKey)

	_, err := f.DecryptRecord(ctx, Record{FieldName: "Budi Santoso!"})
	if !errors.Is(err, ErrDecrypt) || !errors.Is(err, ErrInvalidEncoding) {
		t.Fatalf("DecryptRecord() error = %v", err)
	}

	var te *TransformError
	if !errors.As(err, &te) || te.Field != FieldName {
		t.Errorf("DecryptRecord() error = %#v, want TransformError for %s", err, FieldName)
	}
}

// A record saved before encryption was introduced reads back unchanged in
// compat mode.
func TestFieldEncryptor_DecryptCompat(t *testing.T) {
	ctx := context.Background()
	f := NewFieldEncryptor(fieldKey, WithMode(ModeCompat))
	s := NewStream(fieldKey)

	in := Record{
		FieldName:      "Budi Santoso!",
		FieldDiagnosis: s.Encode("tifus"),
	}
	out, err := f.DecryptRecord(ctx, in)
	if err != nil {
		t.Fatalf("DecryptRecord() error: %v", err)
	}
	if out[FieldName] != "Budi Santoso!" {
		t.Errorf("nama = %v, want input kept", out[FieldName])
	}
	if out[FieldDiagnosis] != "tifus" {
		t.Errorf("diagnosa = %v", out[FieldDiagnosis])
	}
}

func TestFieldEncryptor_DecryptCountExcludesFallbacks(t *testing.T) {
	f := NewFieldEncryptor(fieldKey, WithMode(ModeCompat))
	s := NewStream(fieldKey)

	in := Record{
		FieldName:      "Budi Santoso!",
		FieldPhone:     "-",
		FieldDiagnosis: s.Encode("tifus"),
	}
	_, n, err := f.decryptRecord(context.Background(), in)
	if err != nil {
		t.Fatalf("decryptRecord() error: %v", err)
	}
	if n != 1 {
		t.Errorf("decrypted count = %d, want 1", n)
	}

	_, n, err = f.decryptRecords(context.Background(), []Record{in, in})
	if err != nil {
		t.Fatalf("decryptRecords() error: %v", err)
	}
	if n != 2 {
		t.Errorf("decrypted count = %d, want 2", n)
	}
}

func TestFieldEncryptor_DecryptCompatWrongKey(t *testing.T) {
	ctx := context.Background()
	text := NewStream([]byte("kunci-lama")).Encode("Siti Aminah")

	strict := NewFieldEncryptor(fieldKey)
	_, err := strict.DecryptRecord(ctx, Record{FieldName: text})
	if err == nil {
		t.Skip("wrong key produced valid padding by chance")
	}

	compat := NewFieldEncryptor(fieldKey, WithMode(ModeCompat))
	out, err := compat.DecryptRecord(ctx, Record{FieldName: text})
	if err != nil {
		t.Fatalf("DecryptRecord() error: %v", err)
	}
	want := NewStream(fieldKey).DecodeLenient(text)
	if out[FieldName] != want {
		t.Errorf("nama = %q, want lenient %q", out[FieldName], want)
	}
}

func TestFieldEncryptor_DecryptRecords(t *testing.T) {
	ctx := context.Background()

	for _, parallel := range []int{1, 4} {
		t.Run(fmt.Sprintf("parallel=%d", parallel), func(t *testing.T) {
			f := NewFieldEncryptor(fieldKey, WithParallel(parallel))

			in := make([]Record, 20)
			for i := range in {
				r := sampleRecord()
				r["id"] = fmt.Sprintf("rm-%02d", i)
				r[FieldName] = fmt.Sprintf("Pasien %d", i)
				in[i] = f.EncryptRecord(ctx, r)
			}

			out, err := f.DecryptRecords(ctx, in)
			if err != nil {
				t.Fatalf("DecryptRecords() error: %v", err)
			}
			if len(out) != len(in) {
				t.Fatalf("DecryptRecords() len = %d", len(out))
			}
			for i, r := range out {
				if r["id"] != fmt.Sprintf("rm-%02d", i) || r[FieldName] != fmt.Sprintf("Pasien %d", i) {
					t.Errorf("record %d = %v", i, r)
				}
			}
		})
	}
}

func TestFieldEncryptor_DecryptRecordsError(t *testing.T) {
	ctx := context.Background()

	for _, parallel := range []int{1, 4} {
		f := NewFieldEncryptor(fieldKey, WithParallel(parallel))
		in := []Record{
			f.EncryptRecord(ctx, sampleRecord()),
			{FieldName: "!!"},
			f.EncryptRecord(ctx, sampleRecord()),
		}

		out, err := f.DecryptRecords(ctx, in)
		if !errors.Is(err, ErrDecrypt) {
			t.Errorf("parallel=%d: DecryptRecords() error = %v, want ErrDecrypt", parallel, err)
		}
		if out != nil {
			t.Errorf("parallel=%d: DecryptRecords() = %v, want nil on error", parallel, out)
		}
	}

	f := NewFieldEncryptor(fieldKey)
	out, err := f.DecryptRecords(ctx, nil)
	if err != nil || out != nil {
		t.Errorf("DecryptRecords(nil) = %v, %v", out, err)
	}
}

func TestFieldEncryptor_DecryptPayload(t *testing.T) {
	ctx := context.Background()
	f := NewFieldEncryptor(fieldKey)
	enc := f.EncryptRecord(ctx, Record{FieldName: "Siti"})

	t.Run("records", func(t *testing.T) {
		got, err := f.DecryptPayload(ctx, []Record{enc})
		if err != nil {
			t.Fatalf("DecryptPayload() error: %v", err)
		}
		if got.([]Record)[0][FieldName] != "Siti" {
			t.Errorf("DecryptPayload() = %v", got)
		}
	})

	t.Run("maps", func(t *testing.T) {
		got, err := f.DecryptPayload(ctx, []map[string]any{enc})
		if err != nil {
			t.Fatalf("DecryptPayload() error: %v", err)
		}
		if got.([]map[string]any)[0][FieldName] != "Siti" {
			t.Errorf("DecryptPayload() = %v", got)
		}
	})

	t.Run("mixed list", func(t *testing.T) {
		in := []any{map[string]any(enc), "teks", 42, enc}
		got, err := f.DecryptPayload(ctx, in)
		if err != nil {
			t.Fatalf("DecryptPayload() error: %v", err)
		}
		list := got.([]any)
		if list[0].(map[string]any)[FieldName] != "Siti" {
			t.Errorf("element 0 = %v", list[0])
		}
		if list[1] != "teks" || list[2] != 42 {
			t.Errorf("non-objects changed: %v", list)
		}
		if list[3].(Record)[FieldName] != "Siti" {
			t.Errorf("element 3 = %v", list[3])
		}
	})

	t.Run("not a list", func(t *testing.T) {
		in := map[string]any{FieldName: enc[FieldName]}
		got, err := f.DecryptPayload(ctx, in)
		if err != nil {
			t.Fatalf("DecryptPayload() error: %v", err)
		}
		if got.(map[string]any)[FieldName] != enc[FieldName] {
			t.Error("non-list payload should pass through")
		}
	})

	t.Run("error", func(t *testing.T) {
		if _, err := f.DecryptPayload(ctx, []Record{{FieldName: "!!"}}); !errors.Is(err, ErrDecrypt) {
			t.Errorf("DecryptPayload() error = %v, want ErrDecrypt", err)
		}
	})
}
