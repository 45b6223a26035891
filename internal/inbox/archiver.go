package inbox

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Archive subdirectories under the inbox.
const (
	ProcessedDir = "processed"
	FailedDir    = "failed"
)

// FileArchiver moves handled files out of the inbox.
type FileArchiver struct {
	Root string
	Now  func() time.Time
}

// NewFileArchiver archives into subdirectories of root.
func NewFileArchiver(root string) *FileArchiver {
	return &FileArchiver{Root: root, Now: time.Now}
}

// Archive moves path into processed/ when ok and failed/ otherwise, and
// returns the new path. Name collisions get a time suffix.
func (a *FileArchiver) Archive(path string, ok bool) (string, error) {
	sub := FailedDir
	if ok {
		sub = ProcessedDir
	}
	dir := filepath.Join(a.Root, sub)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create archive directory: %w", err)
	}

	base := filepath.Base(path)
	dest := filepath.Join(dir, base)
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(base)
		dest = filepath.Join(dir, fmt.Sprintf("%s-%s%s", strings.TrimSuffix(base, ext), a.Now().Format("20060102-150405.000"), ext))
	}

	if err := os.Rename(path, dest); err != nil {
		// Rename fails across devices.
		if err := copyAndDelete(path, dest); err != nil {
			return "", fmt.Errorf("archive file: %w", err)
		}
	}
	return dest, nil
}

func copyAndDelete(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source file: %w", err)
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source file: %w", err)
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode())
	if err != nil {
		return fmt.Errorf("create destination file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copy file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close destination file: %w", err)
	}
	in.Close()
	return os.Remove(src)
}
