package engine

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// ErrVerifyMismatch is returned when a copied file does not hash like its source.
var ErrVerifyMismatch = errors.New("checksum mismatch")

// VerifyError records a single checksum mismatch.
type VerifyError struct {
	Path    string
	SrcHash string
	DstHash string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("%s: %v (src %s, dst %s)", e.Path, ErrVerifyMismatch, e.SrcHash, e.DstHash)
}

func (e *VerifyError) Is(target error) bool {
	return target == ErrVerifyMismatch
}

// verifyCopy compares BLAKE3 checksums of a finished copy. A mismatch is
// returned as *VerifyError; hashing failures are returned as-is.
func verifyCopy(task FileTask) error {
	srcHash, err := hashFile(task.SrcPath)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	dstHash, err := hashFile(task.DstPath)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if srcHash != dstHash {
		return &VerifyError{Path: task.DstPath, SrcHash: srcHash, DstHash: dstHash}
	}
	return nil
}

// hashFile returns the hex BLAKE3 digest of path's contents. Holes hash as
// the zeros they read back as.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.CopyBuffer(h, f, make([]byte, 256*1024)); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
