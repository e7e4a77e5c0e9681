// Package backend is the HTTP client for the voice assistant backend
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dooshek/voiceassist/internal/catalog"
	"github.com/dooshek/voiceassist/internal/logger"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const (
	pathCharacters   = "/get_characters"
	pathLanguages    = "/get_languages"
	pathProcessAudio = "/process_audio"
	pathProcessText  = "/process_text"
	pathHealth       = "/health"

	requestIDHeader = "X-Request-ID"
	maxErrorBody    = 512
)

// ErrBackendFailure is wrapped by every error the backend reported itself
// (success: false)
var ErrBackendFailure = errors.New("backend reported failure")

// FailureError carries the message of a success:false response
type FailureError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *FailureError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", ErrBackendFailure, e.Endpoint)
	}
	return fmt.Sprintf("%s: %s", ErrBackendFailure, e.Message)
}

func (e *FailureError) Unwrap() error {
	return ErrBackendFailure
}

// Reply is the common response of /process_audio and /process_text
type Reply struct {
	Success         bool   `json:"success"`
	TranscribedText string `json:"transcribed_text,omitempty"`
	ResponseText    string `json:"response_text"`
	AudioFile       string `json:"audio_file,omitempty"`
	Error           string `json:"error,omitempty"`
}

// AudioRequest is the multipart payload of /process_audio
type AudioRequest struct {
	Audio        []byte
	Filename     string // defaults to recording.wav
	Language     string
	LanguageCode string
	Character    string
	VoiceID      string
	APIVersion   string
}

// TextRequest is the JSON payload of /process_text
type TextRequest struct {
	Text               string `json:"text"`
	SourceLanguage     string `json:"source_language"`
	SourceLanguageCode string `json:"source_language_code"`
	TargetLanguage     string `json:"target_language"`
	TargetLanguageCode string `json:"target_language_code"`
	Character          string `json:"character"`
	VoiceID            string `json:"voice_id"`
	APIVersion         string `json:"api_version"`
}

// Health is the /health response
type Health struct {
	Status    string  `json:"status"`
	Timestamp float64 `json:"timestamp"`
}

// Client talks to a single backend. Every call is a single attempt.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// New creates a client for the backend at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend root
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Resolve turns a path returned by the backend (e.g. audio_file) into an
// absolute URL
func (c *Client) Resolve(ref string) (string, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid reference %q: %w", ref, err)
	}
	return c.baseURL.ResolveReference(r).String(), nil
}

// GetCharacters fetches the character catalog
func (c *Client) GetCharacters(ctx context.Context) (*catalog.Catalog, error) {
	body, err := c.do(ctx, http.MethodGet, pathCharacters, "", nil)
	if err != nil {
		return nil, err
	}

	res, err := parseEnvelope(pathCharacters, body)
	if err != nil {
		return nil, err
	}

	characters, err := catalog.CharactersFromResult(res.Get("characters"))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", pathCharacters, err)
	}
	return characters, nil
}

// GetLanguages fetches the language list of one character
func (c *Client) GetLanguages(ctx context.Context, character string) ([]catalog.Language, error) {
	payload, err := json.Marshal(map[string]string{"character": character})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, pathLanguages, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	res, err := parseEnvelope(pathLanguages, body)
	if err != nil {
		return nil, err
	}
	languages := res.Get("languages")
	if !languages.IsObject() {
		return nil, fmt.Errorf("decode %s: languages must be an object, got %s", pathLanguages, languages.Type)
	}
	return catalog.LanguagesFromResult(languages), nil
}

// ProcessAudio uploads a recording and returns the assistant's reply
func (c *Client) ProcessAudio(ctx context.Context, req AudioRequest) (*Reply, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	filename := req.Filename
	if filename == "" {
		filename = "recording.wav"
	}
	part, err := w.CreateFormFile("audio", filename)
	if err != nil {
		return nil, fmt.Errorf("create audio part: %w", err)
	}
	if _, err := part.Write(req.Audio); err != nil {
		return nil, fmt.Errorf("write audio part: %w", err)
	}

	fields := [][2]string{
		{"language", req.Language},
		{"language_code", req.LanguageCode},
		{"character", req.Character},
		{"voice_id", req.VoiceID},
		{"api_version", req.APIVersion},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("write field %s: %w", f[0], err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, pathProcessAudio, w.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}
	return decodeReply(pathProcessAudio, body)
}

// ProcessText sends a typed message and returns the assistant's reply
func (c *Client) ProcessText(ctx context.Context, req TextRequest) (*Reply, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, pathProcessText, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	return decodeReply(pathProcessText, body)
}

// Health queries the backend health endpoint
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	body, err := c.do(ctx, http.MethodGet, pathHealth, "", nil)
	if err != nil {
		return h, err
	}
	if err := json.Unmarshal(body, &h); err != nil {
		return h, fmt.Errorf("decode %s: %w", pathHealth, err)
	}
	return h, nil
}

// Download fetches a file referenced by the backend, e.g. a reply's audio_file
func (c *Client) Download(ctx context.Context, ref string) (io.ReadCloser, error) {
	target, err := c.Resolve(ref)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(requestIDHeader, uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", ref, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("download %s: HTTP %d: %s", ref, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp.Body, nil
}

// do performs one request and returns the body. Non-2xx responses carrying a
// JSON error envelope come back as *FailureError.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	target := c.baseURL.JoinPath(path).String()

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	logger.Debugf("%s %s -> %d in %d ms (request %s)", method, path, resp.StatusCode, time.Since(start).Milliseconds(), requestID)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if msg := gjson.GetBytes(data, "error"); gjson.ValidBytes(data) && msg.Exists() {
			return nil, &FailureError{Endpoint: path, Status: resp.StatusCode, Message: msg.String()}
		}
		snippet := data
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, fmt.Errorf("%s %s: HTTP %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	return data, nil
}

// parseEnvelope validates a {success, error?, ...} document
func parseEnvelope(path string, body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("decode %s: invalid JSON", path)
	}
	res := gjson.ParseBytes(body)
	if !res.Get("success").Bool() {
		return gjson.Result{}, &FailureError{Endpoint: path, Status: http.StatusOK, Message: res.Get("error").String()}
	}
	return res, nil
}

func decodeReply(path string, body []byte) (*Reply, error) {
	var reply Reply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if !reply.Success {
		return nil, &FailureError{Endpoint: path, Status: http.StatusOK, Message: reply.Error}
	}
	return &reply, nil
}
