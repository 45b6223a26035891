package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// OutputFormat is the response format requested from the ASR service.
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 5 * time.Minute

// APIError is a non-200 response from the ASR service.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: status %d: %s", e.Status, e.Body)
}

// WhisperASR is a client for the openai-whisper-asr-webservice HTTP API.
// Format conversion happens server side, so any supported container is sent as is.
type WhisperASR struct {
	baseURL    string
	httpClient *http.Client
	output     OutputFormat
}

// WhisperOption configures a WhisperASR client.
type WhisperOption func(*WhisperASR)

// WithTimeout sets the HTTP request timeout.
func WithTimeout(d time.Duration) WhisperOption {
	return func(c *WhisperASR) {
		c.httpClient.Timeout = d
	}
}

// WithOutputFormat sets the response format.
func WithOutputFormat(format OutputFormat) WhisperOption {
	return func(c *WhisperASR) {
		c.output = format
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) WhisperOption {
	return func(c *WhisperASR) {
		c.httpClient = client
	}
}

// NewWhisperASR creates a client for the service at baseURL.
func NewWhisperASR(baseURL string, opts ...WhisperOption) *WhisperASR {
	c := &WhisperASR{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		output:     OutputFormatJSON,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transcribe implements Transcriber.
func (c *WhisperASR) Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("audio_file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	reqURL, err := c.buildURL(opts)
	if err != nil {
		return nil, fmt.Errorf("build URL: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return c.parseResponse(resp.Body)
}

func (c *WhisperASR) buildURL(opts Options) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/asr"
	}
	q := u.Query()
	q.Set("output", string(c.output))
	if opts.Language != "" && opts.Language != "auto" {
		q.Set("language", opts.Language)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type whisperResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func (c *WhisperASR) parseResponse(body io.Reader) (*Result, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if c.output == OutputFormatText {
		return &Result{Text: string(data), Source: "whisper"}, nil
	}
	var resp whisperResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse JSON response: %w", err)
	}
	return &Result{Text: resp.Text, Language: resp.Language, Source: "whisper"}, nil
}
