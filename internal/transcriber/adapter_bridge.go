package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"sync"
	"time"
)

// BridgeAdapter talks to the locally running speech-to-text bridge over HTTP.
// The bridge is optional: Available probes GET /status with a short timeout
// and caches the answer, so a missing bridge costs one cheap check per TTL,
// not one per segment.
type BridgeAdapter struct {
	baseURL  string
	token    string
	model    string
	language string
	client   *http.Client

	probeTTL time.Duration

	mu          sync.Mutex
	lastProbe   time.Time
	lastHealthy bool
	device      string
	models      []string
}

type BridgeConfig struct {
	BaseURL      string
	Token        string
	Model        string
	Language     string
	Timeout      time.Duration
	ProbeTTL     time.Duration
	ProbeTimeout time.Duration
}

// statusResponse is the bridge's GET /status payload.
type statusResponse struct {
	OK     bool     `json:"ok"`
	Device string   `json:"device"`
	Models []string `json:"models"`
}

func NewBridgeAdapter(cfg BridgeConfig) *BridgeAdapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.ProbeTTL <= 0 {
		cfg.ProbeTTL = 30 * time.Second
	}
	return &BridgeAdapter{
		baseURL:  cfg.BaseURL,
		token:    cfg.Token,
		model:    cfg.Model,
		language: cfg.Language,
		client:   &http.Client{Timeout: cfg.Timeout},
		probeTTL: cfg.ProbeTTL,
	}
}

func (a *BridgeAdapter) Name() string { return "bridge" }

// Available reports whether the bridge answered its last liveness probe.
// Probe results are cached for the TTL.
func (a *BridgeAdapter) Available(ctx context.Context) bool {
	a.mu.Lock()
	if time.Since(a.lastProbe) < a.probeTTL {
		healthy := a.lastHealthy
		a.mu.Unlock()
		return healthy
	}
	a.mu.Unlock()

	return a.probe(ctx)
}

func (a *BridgeAdapter) probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, a.baseURL+"/status", nil)
	if err != nil {
		return a.recordProbe(false, statusResponse{})
	}
	a.authorize(req)

	resp, err := a.client.Do(req)
	if err != nil {
		log.Printf("bridge: status probe failed: %v", err)
		return a.recordProbe(false, statusResponse{})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("bridge: status probe returned %d", resp.StatusCode)
		return a.recordProbe(false, statusResponse{})
	}

	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil || !status.OK {
		return a.recordProbe(false, statusResponse{})
	}

	log.Printf("bridge: healthy (device=%s, %d models)", status.Device, len(status.Models))
	return a.recordProbe(true, status)
}

func (a *BridgeAdapter) recordProbe(healthy bool, status statusResponse) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastProbe = time.Now()
	a.lastHealthy = healthy
	a.device = status.Device
	a.models = status.Models
	return healthy
}

// Transcribe posts the WAV payload as a multipart upload and decodes the
// bridge's {text, segments, duration} response.
func (a *BridgeAdapter) Transcribe(ctx context.Context, wav []byte) (Result, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("audio", "segment.wav")
	if err != nil {
		return Result{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return Result{}, fmt.Errorf("write audio payload: %w", err)
	}
	if a.model != "" {
		_ = form.WriteField("model", a.model)
	}
	if a.language != "" {
		_ = form.WriteField("language", a.language)
	}
	if err := form.Close(); err != nil {
		return Result{}, fmt.Errorf("finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/transcribe", &body)
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	a.authorize(req)

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		a.recordProbe(false, statusResponse{})
		return Result{}, &TranscriptionError{Backend: a.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, &TranscriptionError{
			Backend: a.Name(),
			Err:     fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(raw)),
		}
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, &TranscriptionError{Backend: a.Name(), Err: fmt.Errorf("decode response: %w", err)}
	}

	log.Printf("bridge: transcribed %d bytes in %v: %q", len(wav), time.Since(start), result.Text)
	return result, nil
}

func (a *BridgeAdapter) authorize(req *http.Request) {
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
}
