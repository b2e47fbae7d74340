package secrets

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureKeyIsStable(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	first, err := EnsureKey("journal")
	require.NoError(t, err)
	require.Len(t, first, keySize)

	second, err := EnsureKey(" Journal ")
	require.NoError(t, err)
	require.Equal(t, first, second)

	path := filepath.Join(dir, appDir, fileName)
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(raw), string(first))
}

func TestStorePutGetDelete(t *testing.T) {
	s, err := OpenAt(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get("journal")
	require.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, s.Put("journal", []byte("0123456789abcdef")))
	got, err := s.Get("JOURNAL")
	require.NoError(t, err)
	require.Equal(t, []byte("0123456789abcdef"), got)

	require.NoError(t, s.Delete("journal"))
	require.NoError(t, s.Delete("journal"))
	_, err = s.Get("journal")
	require.ErrorIs(t, err, ErrKeyNotFound)

	_, err = s.Get("  ")
	require.Error(t, err)
}

func TestSealedValueIsBoundToName(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenAt(dir)
	require.NoError(t, err)
	require.NoError(t, s.Put("a", []byte("first")))
	require.NoError(t, s.Put("b", []byte("second")))

	path := filepath.Join(dir, fileName)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var kf keyFile
	require.NoError(t, json.Unmarshal(data, &kf))
	kf.Sealed["a"], kf.Sealed["b"] = kf.Sealed["b"], kf.Sealed["a"]
	data, err = json.Marshal(kf)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	_, err = s.Get("a")
	require.Error(t, err)
}

func TestUnknownFileVersion(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, fileName), []byte(`{"version":9,"sealed":{}}`), 0o600))
	s, err := OpenAt(dir)
	require.NoError(t, err)
	_, err = s.Get("journal")
	require.ErrorContains(t, err, "version 9")
}
