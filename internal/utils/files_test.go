package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFloatPairs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.dat")
	content := "# z [m]  U [eV]\n-0.5 1e-3\n\n  0 0\n0.5 -1e-3\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	pairs, err := ReadFloatPairs(path)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{-0.5, 1e-3}, {0, 0}, {0.5, -1e-3}}, pairs)
}

func TestReadFloatPairsErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadFloatPairs(filepath.Join(dir, "missing.dat"))
	assert.Error(t, err)

	path := filepath.Join(dir, "bad.dat")
	require.NoError(t, os.WriteFile(path, []byte("1 2 3\n"), 0600))
	_, err = ReadFloatPairs(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("1 x\n"), 0600))
	_, err = ReadFloatPairs(path)
	assert.Error(t, err)
}

func TestGetFilename(t *testing.T) {
	assert.Equal(t, "sps", GetFilename("configs/sps.toml"))
	assert.Equal(t, "bucket", GetFilename("bucket"))
}

func TestWriteAsCSV(t *testing.T) {
	dir := t.TempDir()
	data := CSV{{"sps10", "3"}, {"sps2", "2"}, {"sps1", "1"}}
	require.NoError(t, WriteAsCSV(data, dir, "area", "runs.toml", []string{"model", "area"}))

	content, err := os.ReadFile(filepath.Join(dir, "area", "runs.csv"))
	require.NoError(t, err)
	assert.Equal(t, "model,area\nsps1,1\nsps2,2\nsps10,3\n", string(content))
}
