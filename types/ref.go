package types

import (
	"encoding"
	"fmt"
	"strings"
)

// Separator splits the name and the digest in the text form of a Ref.
const Separator = ";"

var (
	_ encoding.TextMarshaler   = Ref{}
	_ encoding.TextUnmarshaler = (*Ref)(nil)
)

// FormatError is returned when a text form of a reference or a digest cannot be decoded.
type FormatError struct {
	Text   string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("format: %s: %q: %v", e.Reason, e.Text, e.Err)
	}
	return fmt.Sprintf("format: %s: %q", e.Reason, e.Text)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Ref is a descriptor of a blob stored outside of a record: its name and the digest of its content.
type Ref struct {
	Name   string
	Digest Digest
}

// NewRef creates a reference, validating the name.
func NewRef(name string, d Digest) (Ref, error) {
	if err := checkName(name); err != nil {
		return Ref{}, err
	}
	return Ref{Name: name, Digest: d}, nil
}

func checkName(name string) error {
	if name == "" {
		return &FormatError{Text: name, Reason: "empty name"}
	} else if strings.Contains(name, Separator) {
		return &FormatError{Text: name, Reason: "name contains a separator"}
	}
	return nil
}

// ParseRef decodes a reference from the "name;hexdigest" form.
func ParseRef(s string) (Ref, error) {
	fields := strings.Split(s, Separator)
	if len(fields) != 2 {
		return Ref{}, &FormatError{Text: s, Reason: fmt.Sprintf("expected 2 fields, got %d", len(fields))}
	}
	if err := checkName(fields[0]); err != nil {
		return Ref{}, &FormatError{Text: s, Reason: err.(*FormatError).Reason}
	}
	d, err := ParseDigest(fields[1])
	if err != nil {
		return Ref{}, err
	}
	return Ref{Name: fields[0], Digest: d}, nil
}

func MustParseRef(s string) Ref {
	ref, err := ParseRef(s)
	if err != nil {
		panic(err)
	}
	return ref
}

func (r Ref) Zero() bool {
	return r == Ref{}
}

func (r Ref) String() string {
	return r.Name + Separator + r.Digest.String()
}

func (r Ref) GoString() string {
	return fmt.Sprintf("types.MustParseRef(%q)", r.String())
}

func (r Ref) MarshalText() ([]byte, error) {
	if err := checkName(r.Name); err != nil {
		return nil, err
	}
	return []byte(r.String()), nil
}

func (r *Ref) UnmarshalText(s []byte) error {
	nr, err := ParseRef(string(s))
	if err != nil {
		return err
	}
	*r = nr
	return nil
}
