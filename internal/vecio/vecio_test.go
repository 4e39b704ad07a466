package vecio

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	v, err := Read(strings.NewReader("3\n1.5\n2\n-0.25\n"))
	require.NoError(t, err)
	assert.Equal(t, []float32{1.5, 2, -0.25}, v)
}

func TestReadWhitespace(t *testing.T) {
	v, err := Read(strings.NewReader("  2 10\t\t20\n\n trailing"))
	require.NoError(t, err)
	assert.Equal(t, []float32{10, 20}, v)
}

func TestReadEmptyVector(t *testing.T) {
	v, err := Read(strings.NewReader("0\n"))
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name, in string
	}{
		{"empty", ""},
		{"bad count", "three\n1 2 3"},
		{"negative count", "-1\n"},
		{"short", "3\n1 2"},
		{"bad value", "2\n1 x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.in))
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []float32{11, 22.5, 0.1}))
	assert.Equal(t, "3\n11\n22.5\n0.1\n", buf.String())
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.raw")
	want := []float32{1e-7, -3.25, float32(math.MaxFloat32), 0.1}

	require.NoError(t, WriteFile(path, want))
	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.raw"))
	assert.Error(t, err)
}

func TestCompare(t *testing.T) {
	assert.NoError(t, Compare([]float32{1, 2, 1000}, []float32{1, 2, 1000}, 0))
	assert.NoError(t, Compare([]float32{1.0001}, []float32{1}, 1e-3))
	assert.NoError(t, Compare([]float32{1000.5}, []float32{1000}, 1e-3), "tolerance scales with magnitude")

	err := Compare([]float32{1, 2, 4}, []float32{1, 2, 3}, 1e-3)
	require.ErrorIs(t, err, ErrMismatch)
	assert.Contains(t, err.Error(), "element 2")

	assert.ErrorIs(t, Compare([]float32{1}, []float32{1, 2}, 1), ErrMismatch)

	nan := float32(math.NaN())
	assert.ErrorIs(t, Compare([]float32{nan}, []float32{1}, 1), ErrMismatch)
}
