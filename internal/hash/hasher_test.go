package hash

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cespare/xxhash/v2"
)

func TestFile_SmallFile(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")

	content := []byte("Hello, World!")
	if err := os.WriteFile(testFile, content, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	sum, err := File(testFile, nil)
	if err != nil {
		t.Fatalf("File failed: %v", err)
	}

	h := xxhash.New()
	h.Write(content)
	expected := h.Sum(nil)

	if !bytes.Equal(sum, expected) {
		t.Errorf("Hash mismatch: expected %x, got %x", expected, sum)
	}
}

func TestFile_LargeFileMatchesXXHashFunc(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "large.bin")

	// Larger than the streaming buffer
	data := make([]byte, 1024*1024)
	for i := range data {
		data[i] = byte(i % 256)
	}

	if err := os.WriteFile(testFile, data, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	streamed, err := File(testFile, nil)
	if err != nil {
		t.Fatalf("File failed: %v", err)
	}

	whole, err := File(testFile, XXHashFunc)
	if err != nil {
		t.Fatalf("File with XXHashFunc failed: %v", err)
	}

	if !bytes.Equal(streamed, whole) {
		t.Errorf("Streaming and whole-file fingerprints differ: %x vs %x", streamed, whole)
	}
}

func TestFile_NonExistent(t *testing.T) {
	_, err := File("/nonexistent/file.txt", nil)
	if err == nil {
		t.Error("File should return error for nonexistent file")
	}

	_, err = File("/nonexistent/file.txt", XXHashFunc)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected wrapped not-exist error, got %v", err)
	}
}

func TestFile_CustomFunc(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "custom.txt")

	if err := os.WriteFile(testFile, []byte("abc"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	var seen []byte
	fn := func(data []byte) ([]byte, error) {
		seen = append([]byte(nil), data...)
		return []byte{1, 2, 3}, nil
	}

	sum, err := File(testFile, fn)
	if err != nil {
		t.Fatalf("File failed: %v", err)
	}
	if string(seen) != "abc" {
		t.Errorf("Custom func should see whole contents, got %q", seen)
	}
	if !bytes.Equal(sum, []byte{1, 2, 3}) {
		t.Errorf("Expected custom fingerprint, got %x", sum)
	}
}

func TestFile_CustomFuncError(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "broken.txt")

	if err := os.WriteFile(testFile, []byte("abc"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	boom := errors.New("boom")
	_, err := File(testFile, func([]byte) ([]byte, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Errorf("Expected wrapped checksum error, got %v", err)
	}
}

func TestXXHashFunc(t *testing.T) {
	data := []byte("test data")

	hashBytes, err := XXHashFunc(data)
	if err != nil {
		t.Fatalf("XXHashFunc failed: %v", err)
	}

	if len(hashBytes) != 8 {
		t.Errorf("Expected 8 bytes, got %d", len(hashBytes))
	}

	hashBytes2, err := XXHashFunc(data)
	if err != nil {
		t.Fatalf("XXHashFunc failed on second call: %v", err)
	}

	if !bytes.Equal(hashBytes, hashBytes2) {
		t.Error("XXHashFunc should be deterministic")
	}
}

func TestXXHashFunc_EmptyData(t *testing.T) {
	hashBytes, err := XXHashFunc([]byte{})
	if err != nil {
		t.Fatalf("XXHashFunc failed: %v", err)
	}

	if len(hashBytes) != 8 {
		t.Errorf("Expected 8 bytes, got %d", len(hashBytes))
	}
}
