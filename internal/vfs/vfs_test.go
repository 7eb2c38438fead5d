package vfs

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

func writeArchive(t *testing.T, path string, files map[string][]byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Size:     int64(len(content)),
			Mode:     0o644,
		}))
		_, err := tw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
}

func TestArchiveRootByteEquality(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "boot.tar.gz")

	small := []byte("hello pxe")
	large := bytes.Repeat([]byte{0xAB}, 3*1024*1024+7)

	writeArchive(t, archivePath, map[string][]byte{
		"bootx64.efi": small,
		"vmlinuz":     large,
	})

	fs, err := OpenArchive(archivePath)
	require.NoError(t, err)

	got, err := fs.Read("bootx64.efi")
	require.NoError(t, err)
	require.Equal(t, small, got)

	got, err = fs.Read("vmlinuz")
	require.NoError(t, err)
	require.Equal(t, large, got)

	size, err := fs.Size("vmlinuz")
	require.NoError(t, err)
	require.EqualValues(t, len(large), size)
}

func TestArchiveRootPathTraversal(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "boot.tar.gz")
	writeArchive(t, archivePath, map[string][]byte{"bootx64.efi": []byte("x")})

	fs, err := OpenArchive(archivePath)
	require.NoError(t, err)

	for _, p := range []string{"../etc/passwd", "/../etc/passwd", "a/../../etc/passwd"} {
		_, err := fs.Read(p)
		require.ErrorIs(t, err, ErrNotFound, "path %q", p)
	}
}

func TestDirectoryRootRoundTrip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pxelinux.0"), []byte("boot code"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "vmlinuz"), []byte("kernel"), 0o644))

	fs, err := OpenDirectory(dir)
	require.NoError(t, err)

	require.True(t, fs.Exists("pxelinux.0"))
	got, err := fs.Read("sub/vmlinuz")
	require.NoError(t, err)
	require.Equal(t, []byte("kernel"), got)

	require.False(t, fs.Exists("missing"))
	_, err = fs.Read("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDirectoryRootPathTraversal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secret"), []byte("x"), 0o644))

	fs, err := OpenDirectory(dir)
	require.NoError(t, err)

	for _, p := range []string{"../etc/passwd", "/../etc/passwd", "a/../../secret"} {
		_, err := fs.Read(p)
		require.ErrorIs(t, err, ErrNotFound, "path %q", p)
	}
}

func TestDirectoryRootReadRange(t *testing.T) {
	dir := t.TempDir()
	content := bytes.Repeat([]byte("0123456789"), 100)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vmlinuz"), content, 0o644))

	fs, err := OpenDirectory(dir)
	require.NoError(t, err)

	got, err := fs.ReadRange("vmlinuz", 10, 5)
	require.NoError(t, err)
	require.Equal(t, content[10:15], got)

	_, err = fs.ReadRange("vmlinuz", int64(len(content)), 1)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestOpenDetectsArchiveBySuffix(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "boot.tgz")
	writeArchive(t, archivePath, map[string][]byte{"a": []byte("b")})

	fs, err := Open(archivePath)
	require.NoError(t, err)
	_, ok := fs.(*ArchiveRoot)
	require.True(t, ok)

	fs, err = Open(dir)
	require.NoError(t, err)
	_, ok = fs.(*DirectoryRoot)
	require.True(t, ok)
}
