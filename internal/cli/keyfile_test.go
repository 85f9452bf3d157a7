package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cavityproof/internal/testutil"
)

func TestKeyfile_RoundTrip(t *testing.T) {
	kp := testutil.NewKeypair("keyfile")
	path := filepath.Join(t.TempDir(), "id.json")

	require.NoError(t, WriteKeyfile(path, kp.Private))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	key, err := ReadKeyfile(path)
	require.NoError(t, err)
	assert.True(t, kp.Private.Equal(key))
	assert.Equal(t, kp.Public, publicKey(key))
}

func TestWriteKeyfile_NeverOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, WriteKeyfile(path, testutil.NewKeypair("a").Private))

	err := WriteKeyfile(path, testutil.NewKeypair("b").Private)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrExist)

	key, err := ReadKeyfile(path)
	require.NoError(t, err)
	assert.Equal(t, testutil.NewKeypair("a").Public, publicKey(key))
}

func TestReadKeyfile_Rejects(t *testing.T) {
	dir := t.TempDir()
	kp := testutil.NewKeypair("tampered")

	tampered := make([]int, 64)
	for i, b := range kp.Private {
		tampered[i] = int(b)
	}
	tampered[63] ^= 1

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"not json", "abc", "invalid character"},
		{"short", "[1,2,3]", "got 3 bytes, want 64"},
		{"out of range", "[" + repeat("256,", 63) + "0]", "out of range"},
		{"mismatched public half", intsJSON(tampered), "public half does not match seed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := ReadKeyfile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := ReadKeyfile(filepath.Join(dir, "absent.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
