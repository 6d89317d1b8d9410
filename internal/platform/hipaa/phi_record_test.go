package hipaa

import (
	"bytes"
	"testing"
)

func newRecordCodec(t *testing.T) *FieldCodec {
	t.Helper()
	codec, err := NewFieldCodec(bytes.Repeat([]byte{0x07}, 32))
	if err != nil {
		t.Fatalf("NewFieldCodec: %v", err)
	}
	return codec
}

func TestEncryptDecryptRecord_RoundTrip(t *testing.T) {
	codec := newRecordCodec(t)

	in := PHIRecord{
		FirstName:   "Avery",
		LastName:    "Nguyen",
		DateOfBirth: "2017-03-21",
		SSN:         "123-45-6789",
		Address: Address{
			Line1:      "12 Elm St",
			Line2:      "Apt 4",
			City:       "Springfield",
			State:      "IL",
			PostalCode: "62704",
		},
		EmergencyContact: Contact{
			Name:         "Jordan Nguyen",
			Phone:        "555-0142",
			Relationship: "parent",
		},
		Insurance: Insurance{
			Provider:    "Acme Health",
			MemberID:    "M-99881",
			GroupNumber: "G-12",
		},
	}

	enc, err := EncryptRecord(codec, in)
	if err != nil {
		t.Fatalf("EncryptRecord: %v", err)
	}
	if enc.SSN == in.SSN || enc.Address == "" {
		t.Fatal("record fields were not encrypted")
	}

	out, err := DecryptRecord(codec, enc)
	if err != nil {
		t.Fatalf("DecryptRecord: %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}
}

func TestEncryptRecord_EmptyFieldsStayEmpty(t *testing.T) {
	codec := newRecordCodec(t)

	in := PHIRecord{FirstName: "Sam", LastName: "Ortiz", DateOfBirth: "2015-09-02"}
	enc, err := EncryptRecord(codec, in)
	if err != nil {
		t.Fatalf("EncryptRecord: %v", err)
	}
	if enc.SSN != "" || enc.Address != "" || enc.EmergencyContact != "" || enc.Insurance != "" {
		t.Errorf("empty fields should not produce envelopes: %+v", enc)
	}

	out, err := DecryptRecord(codec, enc)
	if err != nil {
		t.Fatalf("DecryptRecord: %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch: got %+v", out)
	}
}

func TestDecryptRecord_TamperedFieldFailsWholeRecord(t *testing.T) {
	codec := newRecordCodec(t)

	enc, err := EncryptRecord(codec, PHIRecord{FirstName: "A", LastName: "B", SSN: "987-65-4321"})
	if err != nil {
		t.Fatalf("EncryptRecord: %v", err)
	}
	enc.SSN = flipHexChar(enc.SSN, len(enc.SSN)-1)

	if _, err := DecryptRecord(codec, enc); err == nil {
		t.Fatal("expected decrypt failure for tampered SSN envelope")
	}
}
