package bundle

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
)

// Checksum returns the standard base64 encoding of the SHA-256 digest of
// the file at path.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open archive for checksum: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to read archive for checksum: %w", err)
	}
	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}
