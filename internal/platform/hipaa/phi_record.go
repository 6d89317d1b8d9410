package hipaa

import "strings"

// The PHI columns on a patient row form a fixed record: identity, date of
// birth, SSN, address, emergency contact, and insurance. Structured fields
// are serialized to a canonical string before encryption so the stored
// envelope is a single opaque value per column.

// fieldSep separates the parts of a structured PHI field in its canonical
// string form. ASCII unit separator; never appears in user-entered values.
const fieldSep = "\x1f"

// Address is the structured street-address PHI field.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

// Contact is the structured emergency-contact PHI field.
type Contact struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship,omitempty"`
}

// Insurance is the structured insurance PHI field.
type Insurance struct {
	Provider    string `json:"provider"`
	MemberID    string `json:"member_id"`
	GroupNumber string `json:"group_number,omitempty"`
}

// PHIRecord holds the decrypted PHI fields of one patient.
type PHIRecord struct {
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	DateOfBirth      string    `json:"date_of_birth"` // YYYY-MM-DD
	SSN              string    `json:"ssn,omitempty"`
	Address          Address   `json:"address"`
	EmergencyContact Contact   `json:"emergency_contact"`
	Insurance        Insurance `json:"insurance"`
}

// EncryptedPHIRecord holds the per-column envelopes persisted for one
// patient. Empty source fields stay empty rather than encrypting "".
type EncryptedPHIRecord struct {
	FirstName        string
	LastName         string
	DateOfBirth      string
	SSN              string
	Address          string
	EmergencyContact string
	Insurance        string
}

func (a Address) canonical() string {
	return strings.Join([]string{a.Line1, a.Line2, a.City, a.State, a.PostalCode}, fieldSep)
}

func addressFromCanonical(s string) Address {
	p := splitN(s, 5)
	return Address{Line1: p[0], Line2: p[1], City: p[2], State: p[3], PostalCode: p[4]}
}

func (c Contact) canonical() string {
	return strings.Join([]string{c.Name, c.Phone, c.Relationship}, fieldSep)
}

func contactFromCanonical(s string) Contact {
	p := splitN(s, 3)
	return Contact{Name: p[0], Phone: p[1], Relationship: p[2]}
}

func (i Insurance) canonical() string {
	return strings.Join([]string{i.Provider, i.MemberID, i.GroupNumber}, fieldSep)
}

func insuranceFromCanonical(s string) Insurance {
	p := splitN(s, 3)
	return Insurance{Provider: p[0], MemberID: p[1], GroupNumber: p[2]}
}

// splitN splits a canonical form into exactly n parts, padding with empty
// strings so records written by older versions with fewer parts still parse.
func splitN(s string, n int) []string {
	parts := strings.Split(s, fieldSep)
	for len(parts) < n {
		parts = append(parts, "")
	}
	return parts[:n]
}

// EncryptRecord serializes and encrypts every PHI field of r.
func EncryptRecord(enc FieldEncryptor, r PHIRecord) (EncryptedPHIRecord, error) {
	var out EncryptedPHIRecord
	var err error

	fields := []struct {
		plain string
		dst   *string
	}{
		{r.FirstName, &out.FirstName},
		{r.LastName, &out.LastName},
		{r.DateOfBirth, &out.DateOfBirth},
		{r.SSN, &out.SSN},
		{r.Address.canonical(), &out.Address},
		{r.EmergencyContact.canonical(), &out.EmergencyContact},
		{r.Insurance.canonical(), &out.Insurance},
	}
	for _, f := range fields {
		if strings.Trim(f.plain, fieldSep) == "" {
			continue
		}
		if *f.dst, err = enc.Encrypt(f.plain); err != nil {
			return EncryptedPHIRecord{}, err
		}
	}
	return out, nil
}

// DecryptRecord decrypts and parses every PHI field of e. A failed integrity
// check on any field fails the whole record.
func DecryptRecord(enc FieldEncryptor, e EncryptedPHIRecord) (PHIRecord, error) {
	var r PHIRecord

	decrypt := func(envelope string) (string, error) {
		if envelope == "" {
			return "", nil
		}
		return enc.Decrypt(envelope)
	}

	var err error
	if r.FirstName, err = decrypt(e.FirstName); err != nil {
		return PHIRecord{}, err
	}
	if r.LastName, err = decrypt(e.LastName); err != nil {
		return PHIRecord{}, err
	}
	if r.DateOfBirth, err = decrypt(e.DateOfBirth); err != nil {
		return PHIRecord{}, err
	}
	if r.SSN, err = decrypt(e.SSN); err != nil {
		return PHIRecord{}, err
	}

	var addr, contact, ins string
	if addr, err = decrypt(e.Address); err != nil {
		return PHIRecord{}, err
	}
	if contact, err = decrypt(e.EmergencyContact); err != nil {
		return PHIRecord{}, err
	}
	if ins, err = decrypt(e.Insurance); err != nil {
		return PHIRecord{}, err
	}

	if addr != "" {
		r.Address = addressFromCanonical(addr)
	}
	if contact != "" {
		r.EmergencyContact = contactFromCanonical(contact)
	}
	if ins != "" {
		r.Insurance = insuranceFromCanonical(ins)
	}
	return r, nil
}
