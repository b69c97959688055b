// Package judge0 is a thin client for a Judge0-compatible code execution
// service. It submits one testcase at a time and returns the raw status
// code plus execution metrics; interpreting the status is left to the
// caller.
package judge0

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "arena",
		Subsystem: "judge0",
		Name:      "request_duration_seconds",
		Help:      "Duration of judge0 submission requests",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"})

	requestFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "arena",
		Subsystem: "judge0",
		Name:      "request_failures_total",
		Help:      "Number of judge0 requests that resulted in a transport or protocol error",
	})
)

// Client runs a single testcase through the external judge.
type Client interface {
	Judge(ctx context.Context, req Request) (Result, error)
}

// Request describes one testcase execution.
type Request struct {
	LanguageID     int
	Source         string
	Stdin          string
	ExpectedOutput string
	CPUTimeLimit   float64
	MemoryLimitKB  int
}

// Result carries the judge's raw answer for one testcase. StatusID follows
// the Judge0 status catalog; Time is seconds and Memory is KB, either nil
// when the engine produced no value.
type Result struct {
	StatusID int
	Stdout   string
	Stderr   string
	Time     *float64
	Memory   *float64
	Raw      map[string]interface{}
}

// Config holds client connection settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type httpClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// New constructs a Judge0 HTTP client.
func New(cfg Config, logger zerolog.Logger) (Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("judge0 base url must not be empty")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &httpClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "judge0_client").Logger(),
		tracer:  otel.Tracer("github.com/codearena/arena-api/pkg/judge0"),
	}, nil
}

type submissionPayload struct {
	LanguageID     int     `json:"language_id"`
	SourceCode     string  `json:"source_code"`
	Stdin          string  `json:"stdin,omitempty"`
	ExpectedOutput string  `json:"expected_output,omitempty"`
	CPUTimeLimit   float64 `json:"cpu_time_limit,omitempty"`
	MemoryLimit    int     `json:"memory_limit,omitempty"`
}

type submissionResponse struct {
	Status struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"status"`
	Stdout        string          `json:"stdout"`
	Stderr        string          `json:"stderr"`
	CompileOutput string          `json:"compile_output"`
	Time          json.RawMessage `json:"time"`
	Memory        json.RawMessage `json:"memory"`
}

// Judge submits the testcase with wait semantics and returns the terminal
// result. Source and stdin travel base64-encoded.
func (c *httpClient) Judge(ctx context.Context, req Request) (Result, error) {
	ctx, span := c.tracer.Start(ctx, "judge0.judge", trace.WithAttributes(
		attribute.Int("judge0.language_id", req.LanguageID),
	))
	defer span.End()

	start := time.Now()
	result, err := c.doJudge(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		requestFailures.Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "judge_request_failed")
	} else {
		span.SetAttributes(attribute.Int("judge0.status_id", result.StatusID))
	}
	requestDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	return result, err
}

func (c *httpClient) doJudge(ctx context.Context, req Request) (Result, error) {
	payload := submissionPayload{
		LanguageID:     req.LanguageID,
		SourceCode:     base64.StdEncoding.EncodeToString([]byte(req.Source)),
		Stdin:          base64.StdEncoding.EncodeToString([]byte(req.Stdin)),
		ExpectedOutput: base64.StdEncoding.EncodeToString([]byte(req.ExpectedOutput)),
		CPUTimeLimit:   req.CPUTimeLimit,
		MemoryLimit:    req.MemoryLimitKB,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode judge request: %w", err)
	}

	url := c.baseURL + "/submissions?base64_encoded=true&wait=true"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("failed to build judge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-Auth-Token", c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("judge request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read judge response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Result{}, fmt.Errorf("judge returned status %d: %s", resp.StatusCode, string(raw))
	}

	var decoded submissionResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Result{}, fmt.Errorf("failed to decode judge response: %w", err)
	}

	var rawMap map[string]interface{}
	if err := json.Unmarshal(raw, &rawMap); err != nil {
		rawMap = nil
	}

	result := Result{
		StatusID: decoded.Status.ID,
		Stdout:   decodeBase64(decoded.Stdout),
		Stderr:   decodeBase64(decoded.Stderr),
		Time:     parseNumber(decoded.Time),
		Memory:   parseNumber(decoded.Memory),
		Raw:      rawMap,
	}

	c.logger.Debug().
		Int("status_id", result.StatusID).
		Msg("judge0 submission completed")

	return result, nil
}

func decodeBase64(value string) string {
	if value == "" {
		return ""
	}
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return value
	}
	return string(decoded)
}

// parseNumber handles Judge0's habit of returning time as a quoted decimal
// string and memory as a bare number, with null for both when absent.
func parseNumber(raw json.RawMessage) *float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var asFloat float64
	if err := json.Unmarshal(raw, &asFloat); err == nil {
		return &asFloat
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		parsed, parseErr := strconv.ParseFloat(asString, 64)
		if parseErr == nil {
			return &parsed
		}
	}

	return nil
}
