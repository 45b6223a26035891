package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const (
	uploadTimeLayout  = "20060102_150405"
	maxUploadNameLen  = 100
	multipartMemLimit = 8 << 20
)

// sanitizeFilename reduces name to a safe base name of letters, digits,
// dots, dashes, and underscores.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if len(out) > maxUploadNameLen {
		ext := filepath.Ext(out)
		if len(ext) > 10 {
			ext = ""
		}
		out = out[:maxUploadNameLen-len(ext)] + ext
	}
	if out == "" || out == "_" {
		return "upload"
	}
	return out
}

// saveUpload copies the multipart file in field into dir as
// <timestamp>_<name>. It returns "" when the field is absent.
func (s *Server) saveUpload(r *http.Request, field, dir string) (string, error) {
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	defer f.Close()

	name := s.now().Format(uploadTimeLayout) + "_" + sanitizeFilename(hdr.Filename)
	path := filepath.Join(dir, name)
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		out, err = os.CreateTemp(dir, strings.TrimSuffix(name, filepath.Ext(name))+"-*"+filepath.Ext(name))
	}
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(out, f); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("close upload: %w", err)
	}
	return out.Name(), nil
}

// parseMultipart parses a multipart form, leaving size errors recognisable
// by writeServiceError.
func parseMultipart(r *http.Request) error {
	if err := r.ParseMultipartForm(multipartMemLimit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return &http.MaxBytesError{}
		}
		return fmt.Errorf("parse form: %w", err)
	}
	return nil
}

// discardUpload removes an upload that no entry will reference.
func discardUpload(r *http.Request, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logFor(r.Context()).Warn("remove orphaned upload", "path", path, "err", err)
	}
}
