package transcribe

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeAudio(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("RIFFfakeaudio"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewWhisperASR(t *testing.T) {
	c := NewWhisperASR("http://localhost:9000")
	if c.output != OutputFormatJSON || c.httpClient.Timeout != DefaultTimeout {
		t.Errorf("defaults = %+v", c)
	}
	c = NewWhisperASR("http://localhost:9000", WithTimeout(30*time.Second), WithOutputFormat(OutputFormatText))
	if c.output != OutputFormatText || c.httpClient.Timeout != 30*time.Second {
		t.Errorf("options not applied: %+v", c)
	}
}

func TestWhisperASRBuildURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		opts    Options
		want    string
	}{
		{"base only", "http://localhost:9000", Options{}, "http://localhost:9000/asr?output=json"},
		{"language", "http://localhost:9000", Options{Language: "en"}, "http://localhost:9000/asr?language=en&output=json"},
		{"auto language", "http://localhost:9000/", Options{Language: "auto"}, "http://localhost:9000/asr?output=json"},
		{"custom path", "http://asr.local/v1/asr", Options{}, "http://asr.local/v1/asr?output=json"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewWhisperASR(tc.baseURL).buildURL(tc.opts)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("buildURL = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestWhisperASRTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/asr" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		f, hdr, err := r.FormFile("audio_file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			http.Error(w, "bad", http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		if hdr.Filename != "memo.wav" || string(data) != "RIFFfakeaudio" {
			t.Errorf("upload = %q %q", hdr.Filename, data)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text": " Hello journal. ", "language": "en"}`)
	}))
	defer srv.Close()

	res, err := NewWhisperASR(srv.URL).Transcribe(context.Background(), writeAudio(t, "memo.wav"), Options{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != " Hello journal. " || res.Language != "en" || res.Source != "whisper" {
		t.Errorf("result = %+v", res)
	}
}

func TestWhisperASRAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewWhisperASR(srv.URL).Transcribe(context.Background(), writeAudio(t, "a.mp3"), Options{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("err = %v, want APIError 503", err)
	}
	if !isRetryable(err) {
		t.Error("503 should be retryable")
	}
}

func TestWhisperASRMissingFile(t *testing.T) {
	if _, err := NewWhisperASR("http://localhost:1").Transcribe(context.Background(), "/nonexistent.wav", Options{}); err == nil {
		t.Fatal("expected error for missing file")
	}
}
