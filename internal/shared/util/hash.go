package util

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// ChecksumReader hashes everything read through it.
type ChecksumReader struct {
	r io.Reader
	h hash.Hash
}

// NewChecksumReader wraps r with a SHA-256 hasher.
func NewChecksumReader(r io.Reader) *ChecksumReader {
	return &ChecksumReader{r: r, h: sha256.New()}
}

func (c *ChecksumReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.h.Write(p[:n])
	}
	return n, err
}

// Sum returns the hex-encoded SHA-256 of the bytes read so far.
func (c *ChecksumReader) Sum() string {
	return hex.EncodeToString(c.h.Sum(nil))
}
