package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Knouxai/Knoux-versa-sub002/internal/domain"
	"github.com/Knouxai/Knoux-versa-sub002/internal/infra"
)

// HTTPOptions configures an HTTPTransport.
type HTTPOptions struct {
	BaseURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	Logger         *infra.Logger
}

// HTTPTransport talks JSON to the transform service.
type HTTPTransport struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *infra.Logger
}

// NewHTTPTransport builds a transport for the service at opts.BaseURL.
func NewHTTPTransport(opts HTTPOptions) (*HTTPTransport, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("execution: base url is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &HTTPTransport{baseURL: baseURL, httpClient: httpClient, timeout: timeout, logger: logger}, nil
}

// Transform posts payload and decodes the service response.
func (t *HTTPTransport) Transform(ctx context.Context, payload domain.TransformPayload) (domain.TransformResponse, error) {
	var out domain.TransformResponse
	status, raw, err := t.do(ctx, http.MethodPost, "/v1/transform", payload)
	if err != nil {
		return out, err
	}
	decodeErr := json.Unmarshal(raw, &out)
	if status >= 300 {
		msg := strings.TrimSpace(out.Error)
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(status)
		}
		return domain.TransformResponse{}, &RemoteError{StatusCode: status, Message: msg}
	}
	if decodeErr != nil {
		return domain.TransformResponse{}, &RemoteError{StatusCode: status, Message: "malformed response", Err: decodeErr}
	}
	t.logger.Debug().
		Str("job_id", payload.JobID).
		Bool("success", out.Success).
		Int64("processing_ms", out.ProcessingTimeMs).
		Msg("execution: transform response")
	return out, nil
}

// Catalog fetches the tool catalog.
func (t *HTTPTransport) Catalog(ctx context.Context) (domain.CatalogResponse, error) {
	var out domain.CatalogResponse
	status, raw, err := t.do(ctx, http.MethodGet, "/v1/tools", nil)
	if err != nil {
		return out, err
	}
	if status >= 300 {
		return out, &RemoteError{StatusCode: status, Message: http.StatusText(status)}
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &RemoteError{StatusCode: status, Message: "malformed catalog", Err: err}
	}
	return out, nil
}

// AuthenticateVIP exchanges a VIP key for a session token.
func (t *HTTPTransport) AuthenticateVIP(ctx context.Context, vipKey string) (string, error) {
	status, raw, err := t.do(ctx, http.MethodPost, "/v1/vip/auth", domain.VIPAuthRequest{VIPKey: vipKey})
	if err != nil {
		return "", err
	}
	var out domain.VIPAuthResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &RemoteError{StatusCode: status, Message: "malformed vip response", Err: err}
	}
	if status >= 300 || !out.Success || out.SessionToken == "" {
		msg := out.Error
		if msg == "" {
			msg = "vip authentication failed"
		}
		return "", &RemoteError{StatusCode: status, Message: msg}
	}
	return out.SessionToken, nil
}

// Progress returns a stream source for this service, falling back to
// fallback when the stream is unavailable.
func (t *HTTPTransport) Progress(fallback ProgressSource) ProgressSource {
	return NewStreamProgress(t.baseURL, t.httpClient, fallback, *t.logger)
}

func (t *HTTPTransport) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("execution: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("execution: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &TransportError{Op: "read " + path, Err: err}
	}
	return resp.StatusCode, raw, nil
}
