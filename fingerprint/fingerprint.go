// Package fingerprint derives cache keys from data file contents.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
)

// prefixLen is the number of hex digits kept in a key.
const prefixLen = 8

// Key returns "{basename}_{first 8 hex digits of the MD5 of the content}".
// It returns ("", false) when the file cannot be opened or read.
func Key(path string) (string, bool) {
	sum, err := Sum(path)
	if err != nil {
		return "", false
	}
	return filepath.Base(path) + "_" + sum[:prefixLen], true
}

// Sum returns the full hex MD5 digest of the file at path.
func Sum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
