// Package transcribe turns voice recordings into text.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrNoSpeech means the audio contained no recognizable speech.
	ErrNoSpeech = errors.New("could not understand the audio")
	// ErrUnsupportedFormat means the file extension is not a known audio format.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// Transcriber sends audio and receives text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error)
}

// Options configures a transcription request.
type Options struct {
	Language string
}

// Result is a transcription.
type Result struct {
	Text     string
	Language string
	Source   string
}

var audioTypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".webm": "audio/webm",
	".flac": "audio/flac",
}

// Supported reports whether path has a supported audio extension.
func Supported(path string) bool {
	_, ok := audioTypes[strings.ToLower(filepath.Ext(path))]
	return ok
}

// MIMEType returns the MIME type for an audio file by extension.
func MIMEType(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	mt, ok := audioTypes[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return mt, nil
}

// Chain tries transcribers in order and returns the first non-empty result.
// Errors that a later transcriber cannot fix, such as a canceled context or an
// unsupported file, stop the chain.
type Chain []Transcriber

// Transcribe implements Transcriber.
func (c Chain) Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error) {
	if !Supported(audioPath) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(audioPath))
	}
	if len(c) == 0 {
		return nil, errors.New("transcribe: no transcribers configured")
	}
	var errs []error
	for _, t := range c {
		res, err := t.Transcribe(ctx, audioPath, opts)
		if err == nil && strings.TrimSpace(res.Text) == "" {
			err = ErrNoSpeech
		}
		if err == nil {
			res.Text = strings.TrimSpace(res.Text)
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}
