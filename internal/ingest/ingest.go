package ingest

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// Document is an uploaded file owned by exactly one extraction request.
// Release must be safe to call more than once; only the first call acts.
type Document interface {
	Name() string
	MIMEType() string
	Size() int64
	SHA256() string
	Bytes() ([]byte, error)
	Release() error
}

// StagedDocument is backed by a file in the staging directory.
type StagedDocument struct {
	path     string
	name     string
	mimeType string
	size     int64
	hashHex  string

	once       sync.Once
	releaseErr error
}

func (d *StagedDocument) Name() string     { return d.name }
func (d *StagedDocument) MIMEType() string { return d.mimeType }
func (d *StagedDocument) Size() int64      { return d.size }
func (d *StagedDocument) SHA256() string   { return d.hashHex }
func (d *StagedDocument) Path() string     { return d.path }

func (d *StagedDocument) Bytes() ([]byte, error) {
	b, err := os.ReadFile(d.path)
	if err != nil {
		return nil, fmt.Errorf("read staged file: %w", err)
	}
	return b, nil
}

// Release removes the staged file. A file that is already gone is not an error.
func (d *StagedDocument) Release() error {
	d.once.Do(func() {
		if err := os.Remove(d.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			d.releaseErr = fmt.Errorf("remove staged file: %w", err)
		}
	})
	return d.releaseErr
}

// MemoryDocument holds the bytes in memory; used for in-process callers.
type MemoryDocument struct {
	FileName string
	Type     string
	Data     []byte

	released bool
	mu       sync.Mutex
}

func (d *MemoryDocument) Name() string     { return d.FileName }
func (d *MemoryDocument) MIMEType() string { return d.Type }
func (d *MemoryDocument) Size() int64      { return int64(len(d.Data)) }
func (d *MemoryDocument) SHA256() string   { return hashHex(d.Data) }

func (d *MemoryDocument) Bytes() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return nil, errors.New("document already released")
	}
	return d.Data, nil
}

func (d *MemoryDocument) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.released = true
	d.Data = nil
	return nil
}

// Released reports whether Release has been called.
func (d *MemoryDocument) Released() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.released
}
