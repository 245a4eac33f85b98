package siscomex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/truenorth/comex/backend/internal/domain/providers"
	apperrors "github.com/truenorth/comex/backend/pkg/errors"
	"github.com/truenorth/comex/backend/pkg/retry"
)

const nomenclaturePath = "/classif/api/publico/nomenclatura/"

// Config configures the registry client
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// FailureThreshold consecutive failures open the breaker
	FailureThreshold uint32
	// Cooldown is how long the breaker stays open
	Cooldown time.Duration
	Retry    retry.Config
}

// DefaultConfig returns production settings for baseURL
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:          baseURL,
		Timeout:          5 * time.Second,
		UserAgent:        "TrueNorth-API/1.0",
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		Retry:            retry.RequestConfig(),
	}
}

// HTTPClient talks to the public Siscomex nomenclature API
type HTTPClient struct {
	baseURL    string
	userAgent  string
	timeout    time.Duration
	retry      retry.Config
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("siscomex api returned status %d", e.code)
}

// NewClient creates a registry client
func NewClient(cfg Config) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	threshold := cfg.FailureThreshold

	rc := cfg.Retry
	rc.Retryable = isTransient

	return &HTTPClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
		retry:     rc,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "siscomex",
			Timeout: cfg.Cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		}),
	}
}

var _ providers.RegistryProvider = (*HTTPClient)(nil)

// Lookup fetches one nomenclature record. A 404 or an empty codigo is no record.
func (c *HTTPClient) Lookup(ctx context.Context, code string) (*providers.RegistryNomenclature, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + nomenclaturePath + url.PathEscape(code)

	result, err := c.breaker.Execute(func() (interface{}, error) {
		var rec *providers.RegistryNomenclature
		err := retry.Do(ctx, c.retry, func() error {
			out := &providers.RegistryNomenclature{}
			found, err := c.doJSON(ctx, http.MethodGet, endpoint, nil, out)
			if err != nil {
				return err
			}
			if found {
				rec = out
			}
			return nil
		})
		return rec, err
	})
	if err != nil {
		return nil, apperrors.NewRegistryUnreachableError("siscomex lookup failed for "+code, err)
	}

	rec, _ := result.(*providers.RegistryNomenclature)
	if rec == nil || strings.TrimSpace(rec.Codigo) == "" {
		return nil, nil
	}
	return rec, nil
}

// State reports the breaker state, for health output
func (c *HTTPClient) State() string {
	return c.breaker.State().String()
}

func (c *HTTPClient) doJSON(ctx context.Context, method, endpoint string, body io.Reader, out interface{}) (bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return false, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, &statusError{code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, err
	}
	return true, nil
}

// isTransient retries network errors and 5xx/429 responses
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return false
	}
	return true
}
