package hash

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

const bufferSize = 32 * 1024 // 32KB buffer for streaming

// Func turns file contents into a fixed-size fingerprint.
// It has the same shape as go-merkletree's HashFunc so one function serves both.
type Func func(data []byte) ([]byte, error)

// File fingerprints the file at path. A nil fn streams the file through xxHash;
// any other fn receives the whole file contents.
func File(path string, fn Func) ([]byte, error) {
	if fn != nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		sum, err := fn(data)
		if err != nil {
			return nil, fmt.Errorf("failed to fingerprint file: %w", err)
		}
		return sum, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	h := xxhash.New()
	buf := make([]byte, bufferSize)

	for {
		n, err := file.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
	}

	return h.Sum(nil), nil
}

// XXHashFunc is the default checksum: the big-endian 64-bit xxHash of data.
// It also serves as the hash function for go-merkletree.
func XXHashFunc(data []byte) ([]byte, error) {
	sum := xxhash.Sum64(data)

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, sum)
	return buf, nil
}
