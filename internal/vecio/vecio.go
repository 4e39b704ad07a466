// Package vecio reads and writes float32 vectors in the text format used
// by the vecadd datasets: the element count, then that many
// whitespace-separated values.
//
//	3
//	1.5
//	2
//	-0.25
package vecio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
)

// Errors returned by vecio.
var (
	// ErrFormat is returned for malformed input.
	ErrFormat = errors.New("vecio: malformed vector")

	// ErrMismatch is returned by Compare when two vectors differ.
	ErrMismatch = errors.New("vecio: vectors differ")
)

// ReadFile reads a vector from the named file.
func ReadFile(path string) ([]float32, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	v, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// Read reads one vector from r. Tokens after the last value are ignored.
func Read(r io.Reader) ([]float32, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: missing element count", ErrFormat)
	}
	n, err := strconv.Atoi(sc.Text())
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%w: bad element count %q", ErrFormat, sc.Text())
	}

	v := make([]float32, 0, min(n, 1<<20))
	for i := 0; i < n; i++ {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %d of %d values", ErrFormat, i, n)
		}
		f, err := strconv.ParseFloat(sc.Text(), 32)
		if err != nil {
			return nil, fmt.Errorf("%w: value %d: %w", ErrFormat, i, err)
		}
		v = append(v, float32(f))
	}
	return v, nil
}

// WriteFile writes v to the named file, creating or truncating it.
func WriteFile(path string, v []float32) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	if err := Write(f, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write writes v to w, one value per line, using the shortest
// representation that reads back to the same float32.
func Write(w io.Writer, v []float32) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(strconv.Itoa(len(v)))
	bw.WriteByte('\n')
	for _, f := range v {
		bw.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// Compare checks got against want. Values match if they differ by at most
// tol, scaled by the magnitude of want when it exceeds 1. The error names
// the first mismatching index.
func Compare(got, want []float32, tol float64) error {
	if len(got) != len(want) {
		return fmt.Errorf("%w: got %d elements, want %d", ErrMismatch, len(got), len(want))
	}
	for i := range want {
		g, w := float64(got[i]), float64(want[i])
		if g == w {
			continue
		}
		if math.IsNaN(g) || math.IsNaN(w) || math.Abs(g-w) > tol*math.Max(1, math.Abs(w)) {
			return fmt.Errorf("%w: element %d is %v, want %v", ErrMismatch, i, got[i], want[i])
		}
	}
	return nil
}
