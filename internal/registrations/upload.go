package registrations

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// memorySpoolLimit is how much of a file is held in memory before spilling to disk.
const memorySpoolLimit = 1 << 20

// UploadedFile is a validated upload waiting to be handed to the store.
type UploadedFile struct {
	FieldName   string
	FileName    string
	ContentType string
	Size        int64

	data []byte
	path string
}

// NewUploadedFile wraps in-memory content as an upload.
func NewUploadedFile(fieldName, fileName, contentType string, data []byte) *UploadedFile {
	return &UploadedFile{
		FieldName:   fieldName,
		FileName:    fileName,
		ContentType: contentType,
		Size:        int64(len(data)),
		data:        data,
	}
}

// Open returns a reader over the file contents.
func (f *UploadedFile) Open() (io.ReadCloser, error) {
	if f.path != "" {
		return os.Open(f.path)
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

// Cleanup removes any temp file backing the upload.
func (f *UploadedFile) Cleanup() error {
	if f.path == "" {
		return nil
	}
	err := os.Remove(f.path)
	f.path = ""
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// spool reads r into memory, or a temp file once it outgrows memorySpoolLimit.
// When more than maxBytes arrive the content is discarded, the rest of r is
// drained and oversized is true. oversized stays true when draining fails.
func spool(r io.Reader, maxBytes int64) (file *UploadedFile, oversized bool, err error) {
	var buf bytes.Buffer
	n, err := io.CopyN(&buf, r, min(maxBytes, memorySpoolLimit)+1)
	if err != nil && err != io.EOF {
		return nil, false, fmt.Errorf("read upload: %w", err)
	}
	if n > maxBytes {
		return drainOversized(r, n)
	}
	if err == io.EOF {
		return &UploadedFile{Size: n, data: buf.Bytes()}, false, nil
	}

	tmp, err := os.CreateTemp("", "registration-upload-*")
	if err != nil {
		return nil, false, fmt.Errorf("create spool file: %w", err)
	}
	discard := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		discard()
		return nil, false, fmt.Errorf("write spool file: %w", err)
	}
	m, err := io.CopyN(tmp, r, maxBytes-n+1)
	if err != nil && err != io.EOF {
		discard()
		return nil, false, fmt.Errorf("write spool file: %w", err)
	}
	size := n + m
	if size > maxBytes {
		discard()
		return drainOversized(r, size)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, false, fmt.Errorf("close spool file: %w", err)
	}
	return &UploadedFile{Size: size, path: tmp.Name()}, false, nil
}

func drainOversized(r io.Reader, seen int64) (*UploadedFile, bool, error) {
	rest, err := io.Copy(io.Discard, r)
	file := &UploadedFile{Size: seen + rest}
	if err != nil {
		return file, true, fmt.Errorf("drain upload: %w", err)
	}
	return file, true, nil
}
