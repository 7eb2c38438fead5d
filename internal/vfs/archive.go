package vfs

import (
	"archive/tar"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// ArchiveRoot serves files out of a gzip-compressed tar archive that was
// fully decompressed and indexed at construction time. Boot artifacts
// (bootloaders, kernels, initrds) are small enough to keep entirely in
// memory, which turns every subsequent read and range-read into a plain
// slice operation with no further decompression.
type ArchiveRoot struct {
	entries map[string][]byte
}

// OpenArchive decompresses and indexes the gzip+tar file at rootSpec.
// Only regular file entries are indexed; symlinks, directories, and device
// nodes are not exposed as readable paths.
func OpenArchive(rootSpec string) (*ArchiveRoot, error) {
	f, err := os.Open(rootSpec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRoot, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRoot, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	entries := make(map[string][]byte)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRoot, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		clean, ok := normalize(hdr.Name)
		if !ok {
			continue
		}
		buf := make([]byte, hdr.Size)
		if _, err := io.ReadFull(tr, buf); err != nil {
			return nil, fmt.Errorf("%w: reading entry %s: %w", ErrInvalidRoot, hdr.Name, err)
		}
		entries[clean] = buf
	}
	return &ArchiveRoot{entries: entries}, nil
}

func (a *ArchiveRoot) Exists(path string) bool {
	clean, ok := normalize(path)
	if !ok {
		return false
	}
	_, found := a.entries[clean]
	return found
}

func (a *ArchiveRoot) Size(path string) (int64, error) {
	clean, ok := normalize(path)
	if !ok {
		return 0, ErrNotFound
	}
	b, found := a.entries[clean]
	if !found {
		return 0, ErrNotFound
	}
	return int64(len(b)), nil
}

func (a *ArchiveRoot) Read(path string) ([]byte, error) {
	clean, ok := normalize(path)
	if !ok {
		return nil, ErrNotFound
	}
	b, found := a.entries[clean]
	if !found {
		return nil, ErrNotFound
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (a *ArchiveRoot) ReadRange(path string, offset, length int64) ([]byte, error) {
	clean, ok := normalize(path)
	if !ok {
		return nil, ErrNotFound
	}
	b, found := a.entries[clean]
	if !found {
		return nil, ErrNotFound
	}
	if offset < 0 || offset > int64(len(b)) || offset+length > int64(len(b)) {
		return nil, ErrOutOfRange
	}
	out := make([]byte, length)
	copy(out, b[offset:offset+length])
	return out, nil
}
