package workinglog

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"github.com/srcattr/srcattr/internal/attrerr"
)

// WriteBlob content-addresses content by its SHA-256 hash and writes it to
// the blob store if not already present (write-once; a race to write the
// same hash is safe because the contents are identical by construction).
func (l *Log) WriteBlob(content string) (string, error) {
	sha := sha256Hex(content)
	if err := os.MkdirAll(l.blobsDir(), 0o755); err != nil {
		return "", attrerr.Wrap(attrerr.IO, err)
	}
	path := filepath.Join(l.blobsDir(), sha)
	if _, err := os.Stat(path); err == nil {
		return sha, nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", attrerr.Wrap(attrerr.IO, err)
	}
	return sha, nil
}

// ReadBlob reads back a blob previously written by WriteBlob.
func (l *Log) ReadBlob(sha string) (string, error) {
	data, err := os.ReadFile(filepath.Join(l.blobsDir(), sha))
	if err != nil {
		if os.IsNotExist(err) {
			return "", attrerr.Wrap(attrerr.AbsentState, err)
		}
		return "", attrerr.Wrap(attrerr.IO, err)
	}
	return string(data), nil
}

func sha256Hex(content string) string {
	h := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", h)
}

// CompositeHash hashes a sorted (path, blob-sha) mapping into the single
// hash that identifies a checkpoint's combined content (spec §4.8 step 5).
// pathsSorted must already be in sorted-path order.
func CompositeHash(pathsSorted []string, shaByPath map[string]string) string {
	h := sha256.New()
	for _, p := range pathsSorted {
		h.Write([]byte(p))
		h.Write([]byte{0})
		h.Write([]byte(shaByPath[p]))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
