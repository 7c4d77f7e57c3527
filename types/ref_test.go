package types

import (
	"crypto/sha1"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDigest(t *testing.T) {
	const s = `a9993e364706816aba3e25717850c26c9cd0d89d`

	d, err := ParseDigest(s)
	require.NoError(t, err)
	require.Equal(t, Digest(sha1.Sum([]byte("abc"))), d)
	require.Equal(t, d, DigestOf([]byte("abc")))
	require.Equal(t, s, d.String())
}

func TestDigestEmpty(t *testing.T) {
	sd, err := Hash(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, "da39a3ee5e6b4b0d3255bfef95601890afd80709", sd.Digest.String())
	require.Equal(t, uint64(0), sd.Size)
	require.False(t, sd.Digest.Zero())
}

func TestRef(t *testing.T) {
	const s = `photo.jpg;a9993e364706816aba3e25717850c26c9cd0d89d`

	r, err := ParseRef(s)
	require.NoError(t, err)
	require.Equal(t, "photo.jpg", r.Name)
	require.Equal(t, DigestOf([]byte("abc")), r.Digest)
	require.Equal(t, s, r.String())

	var r2 Ref
	require.NoError(t, r2.UnmarshalText([]byte(s)))
	require.Equal(t, r, r2)
}

func TestRefRoundTrip(t *testing.T) {
	for _, name := range []string{"x", "a b c", "file.tar.gz", "имя", strings.Repeat("n", 300)} {
		var d Digest
		for i := range d {
			d[i] = byte(len(name) + i*7)
		}
		r, err := NewRef(name, d)
		require.NoError(t, err)
		got, err := ParseRef(r.String())
		require.NoError(t, err)
		require.Equal(t, r, got)
	}
}

func TestNewRefInvalid(t *testing.T) {
	_, err := NewRef("", Digest{})
	require.Error(t, err)
	_, err = NewRef("a;b", Digest{})
	var ferr *FormatError
	require.True(t, errors.As(err, &ferr))
}

func TestParseRefErrors(t *testing.T) {
	digest := DigestOf([]byte("abc")).String()
	var cases = []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"no separator", "photo.jpg"},
		{"two separators", "photo;jpg;" + digest},
		{"empty name", ";" + digest},
		{"odd length", "photo.jpg;" + digest[:39]},
		{"not hex", "photo.jpg;" + strings.Repeat("zz", DigestSize)},
		{"short digest", "photo.jpg;abcd"},
		{"long digest", "photo.jpg;" + digest + "00"},
		{"empty digest", "photo.jpg;"},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			_, err := ParseRef(c.text)
			var ferr *FormatError
			require.True(t, errors.As(err, &ferr), "unexpected error: %v", err)
		})
	}
}
