package types

import (
	"crypto/sha1"
	"encoding/hex"
	"hash"
	"io"
)

// DigestSize is the size of a content digest in bytes.
const DigestSize = sha1.Size

// Digest is a content fingerprint of a blob.
type Digest [DigestSize]byte

// NewHash returns a hash that produces digests compatible with Digest.
func NewHash() hash.Hash {
	return sha1.New()
}

// DigestOf computes a digest of a byte slice.
func DigestOf(p []byte) Digest {
	return Digest(sha1.Sum(p))
}

// SumDigest finalizes a running hash created by NewHash.
func SumDigest(h hash.Hash) Digest {
	var d Digest
	_ = h.Sum(d[:0])
	return d
}

// ParseDigest decodes a hex-encoded digest.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	if len(s)%2 != 0 {
		return d, &FormatError{Text: s, Reason: "odd length of hex digest"}
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return d, &FormatError{Text: s, Reason: "invalid hex digest", Err: err}
	}
	if len(data) != DigestSize {
		return d, &FormatError{Text: s, Reason: "wrong digest size"}
	}
	copy(d[:], data)
	return d, nil
}

func (d Digest) Zero() bool {
	return d == Digest{}
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Digest) UnmarshalText(s []byte) error {
	nd, err := ParseDigest(string(s))
	if err != nil {
		return err
	}
	*d = nd
	return nil
}

// SizedDigest is a digest of a blob together with its size.
type SizedDigest struct {
	Digest Digest `json:"digest"`
	Size   uint64 `json:"size,omitempty"`
}

// Hash reads r until EOF and returns the digest of the content.
func Hash(r io.Reader) (SizedDigest, error) {
	h := NewHash()
	n, err := io.Copy(h, r)
	return SizedDigest{Digest: SumDigest(h), Size: uint64(n)}, err
}
