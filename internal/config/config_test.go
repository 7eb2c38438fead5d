package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteDefaultThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	require.NoError(t, WriteDefault(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Default(), *loaded)
}

func TestLoadMergesOverDefaultsForMissingFile(t *testing.T) {
	dir := t.TempDir()
	loaded, err := Load(filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)
	require.Equal(t, Default(), *loaded)
}

func TestLoadPartialFileKeepsOtherDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[dhcp]
port = 6700
`), 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 6700, loaded.DHCP.Port)
	require.Equal(t, Default().TFTP, loaded.TFTP)
}
