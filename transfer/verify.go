package transfer

import (
	"fmt"
	"hash"
	"io"

	"github.com/dennwc/fileref/types"
)

// ErrDigestMismatch is returned when the content doesn't match an expected digest.
type ErrDigestMismatch struct {
	Exp, Got types.Digest
}

func (e *ErrDigestMismatch) Error() string {
	return fmt.Sprintf("digest mismatch: exp: %v, got: %v", e.Exp, e.Got)
}

// VerifyReader wraps a reader and calculates a digest of the data on EOF.
// It returns an error from Read if the digest doesn't match the expected one.
func VerifyReader(r io.Reader, exp types.Digest) io.Reader {
	return &verifyReader{
		r: r, exp: exp, h: types.NewHash(),
	}
}

type verifyReader struct {
	r   io.Reader
	exp types.Digest
	h   hash.Hash
}

func (r *verifyReader) verify() error {
	got := types.SumDigest(r.h)
	if got != r.exp {
		return &ErrDigestMismatch{Exp: r.exp, Got: got}
	}
	return nil
}

func (r *verifyReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n != 0 {
		r.h.Write(p[:n])
	}
	if err == io.EOF {
		if err2 := r.verify(); err2 != nil {
			return n, err2
		}
	}
	return n, err
}
