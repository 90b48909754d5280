// Package blocks provides the byte-level slicing primitives shared by the
// analysis code: fixed-size chunking, column transposition and Hamming
// distance.
package blocks

import (
	"errors"
	"math/bits"
)

// ErrLengthMismatch is returned when two buffers that must be compared
// position by position differ in length.
var ErrLengthMismatch = errors.New("buffers must have equal length")

// Chunk splits data into consecutive slices of n bytes. Every chunk has length
// n except possibly the last one. The returned slices alias data.
func Chunk(data []byte, n int) [][]byte {
	if n <= 0 || len(data) == 0 {
		return nil
	}
	chunks := make([][]byte, 0, (len(data)+n-1)/n)
	for start := 0; start < len(data); start += n {
		end := min(start+n, len(data))
		chunks = append(chunks, data[start:end:end])
	}
	return chunks
}

// FullBlocks is like Chunk but drops a trailing partial block.
func FullBlocks(data []byte, n int) [][]byte {
	if n <= 0 {
		return nil
	}
	count := len(data) / n
	out := make([][]byte, count)
	for i := range count {
		out[i] = data[i*n : (i+1)*n : (i+1)*n]
	}
	return out
}

// Columns transposes data into n columns: column j holds the bytes found at
// positions j, j+n, j+2n, ... Columns never alias data. When n exceeds
// len(data) the trailing columns are empty.
func Columns(data []byte, n int) [][]byte {
	if n <= 0 {
		return nil
	}
	cols := make([][]byte, n)
	for j := range cols {
		cols[j] = make([]byte, 0, len(data)/n+1)
	}
	for i, b := range data {
		cols[i%n] = append(cols[i%n], b)
	}
	return cols
}

// HammingDistance returns the number of differing bits between a and b.
func HammingDistance(a, b []byte) (int, error) {
	if len(a) != len(b) {
		return 0, ErrLengthMismatch
	}
	distance := 0
	for i := range a {
		distance += bits.OnesCount8(a[i] ^ b[i])
	}
	return distance, nil
}
