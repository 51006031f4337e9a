package xio

import (
	"errors"
	"fmt"
	"io"
)

const (
	_   = iota
	KiB = 1 << (10 * iota)
	MiB
	GiB
)

// LimitCopy limits the copy from the reader. This is useful when reading
// HTTP response bodies (OCSP, TSA) to guard against a misbehaving or
// malicious responder sending an unbounded stream.
func LimitCopy(w io.Writer, r io.Reader, limit int64) error {
	written, err := io.Copy(w, io.LimitReader(r, limit))
	if written >= limit || errors.Is(err, io.EOF) {
		return fmt.Errorf("size to read limit hit (potential decompression bomb attack): %d", limit)
	}
	return nil
}
