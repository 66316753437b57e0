// Package dispatch turns a tool call into exactly one HTTP request against the
// API the tool was derived from.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/generic-mcp/internal/common"
	"github.com/bobmcallan/generic-mcp/internal/metrics"
	"github.com/bobmcallan/generic-mcp/internal/tools"
)

// DefaultMaxResponseSize caps how much of a response body is read.
const DefaultMaxResponseSize = 50 << 20 // 50MB

// DefaultTimeout applies when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

const tracerName = "github.com/bobmcallan/generic-mcp/internal/dispatch"

// Options configures a Dispatcher.
type Options struct {
	// Source names the API in logs and metrics.
	Source  string
	BaseURL string
	// Headers are sent on every request and cannot be replaced by arguments.
	Headers map[string]string
	Timeout time.Duration
	// RateLimit is requests per second; zero disables limiting.
	RateLimit        float64
	RateBurst        int
	MaxResponseBytes int64
	Client           *http.Client
}

// Result is a successful (status < 400) response.
type Result struct {
	Status      int
	ContentType string
	Body        []byte
	// JSON holds the decoded body when it parsed as JSON.
	JSON     any
	IsJSON   bool
	Duration time.Duration
}

// Text returns the raw response body.
func (r *Result) Text() string { return string(r.Body) }

// Dispatcher invokes the tools of one catalog. It is safe for concurrent use.
type Dispatcher struct {
	source      string
	baseURL     string
	headers     http.Header
	timeout     time.Duration
	maxResponse int64
	client      *http.Client
	limiter     *rate.Limiter

	catalog *tools.Catalog
	schemas map[string]*gojsonschema.Schema

	logger  *common.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
}

// New compiles every tool's input schema and prepares the HTTP client.
func New(catalog *tools.Catalog, opts Options, logger *common.Logger, m *metrics.Collector) *Dispatcher {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = catalog.BaseURL
	}

	d := &Dispatcher{
		source:      opts.Source,
		baseURL:     strings.TrimRight(baseURL, "/"),
		headers:     make(http.Header, len(opts.Headers)),
		timeout:     opts.Timeout,
		maxResponse: opts.MaxResponseBytes,
		client:      opts.Client,
		catalog:     catalog,
		schemas:     make(map[string]*gojsonschema.Schema, catalog.Len()),
		logger:      logger,
		metrics:     m,
		tracer:      otel.Tracer(tracerName),
	}
	if d.source == "" {
		d.source = catalog.Source
	}
	if d.timeout <= 0 {
		d.timeout = DefaultTimeout
	}
	if d.maxResponse <= 0 {
		d.maxResponse = DefaultMaxResponseSize
	}
	if d.client == nil {
		d.client = &http.Client{}
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	for k, v := range opts.Headers {
		d.headers.Set(k, v)
	}

	for _, def := range catalog.Tools() {
		compiled, err := compileSchema(def)
		if err != nil {
			logger.Warn().Str("source", d.source).Str("tool", def.Name).Str("error", err.Error()).Msg("input schema not fully enforceable, checking names only")
		}
		d.schemas[def.Name] = compiled
	}
	return d
}

// Catalog returns the catalog this dispatcher serves.
func (d *Dispatcher) Catalog() *tools.Catalog { return d.catalog }

// Source returns the source name used in logs and metrics.
func (d *Dispatcher) Source() string { return d.source }

// Invoke validates args, sends one request and classifies the outcome. It never retries.
func (d *Dispatcher) Invoke(ctx context.Context, name string, args map[string]any) (*Result, error) {
	start := time.Now()
	def, ok := d.catalog.Lookup(name)
	if !ok {
		err := fmt.Errorf("%w: %q", ErrToolNotFound, name)
		d.metrics.ObserveInvocation(d.source, "unknown", KindToolNotFound, time.Since(start))
		return nil, err
	}

	ctx, span := d.tracer.Start(ctx, "tool.invoke", trace.WithAttributes(
		attribute.String("tool.name", name),
		attribute.String("tool.source", d.source),
		attribute.String("http.method", def.Endpoint.Method),
		attribute.String("http.route", def.Endpoint.Path),
	))
	defer span.End()

	logger := d.logger.WithCorrelationId(uuid.New().String())
	result, err := d.invoke(ctx, logger, def, args)

	elapsed := time.Since(start)
	outcome := "ok"
	if err != nil {
		outcome = KindOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		logger.Warn().Str("tool", name).Str("kind", outcome).Int64("duration_ms", elapsed.Milliseconds()).Str("error", err.Error()).Msg("tool invocation failed")
	} else {
		span.SetAttributes(attribute.Int("http.status_code", result.Status))
		span.SetStatus(codes.Ok, "")
		logger.Info().Str("tool", name).Int("status", result.Status).Int64("duration_ms", elapsed.Milliseconds()).Msg("tool invoked")
	}
	d.metrics.ObserveInvocation(d.source, name, outcome, elapsed)
	return result, err
}

func (d *Dispatcher) invoke(ctx context.Context, logger *common.Logger, def *tools.ToolDefinition, args map[string]any) (*Result, error) {
	if args == nil {
		args = map[string]any{}
	}
	if err := validateArguments(def.Name, d.schemas[def.Name], args); err != nil {
		return nil, err
	}
	out, err := assemble(d.baseURL, def, args)
	if err != nil {
		return nil, err
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Method: out.method, URL: out.url, Err: err}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := out.newHTTPRequest(ctx, d.headers)
	if err != nil {
		return nil, &TransportError{Method: out.method, URL: out.url, Err: err}
	}

	logger.Debug().Str("method", out.method).Str("url", out.url).Msg("api request")

	done := d.metrics.Track()
	start := time.Now()
	resp, err := d.client.Do(req)
	duration := time.Since(start)
	done()
	if err != nil {
		logger.Error().Str("method", out.method).Str("url", out.url).Int64("duration_ms", duration.Milliseconds()).Str("error", err.Error()).Msg("api request failed")
		return nil, &TransportError{Method: out.method, URL: out.url, Err: transportCause(ctx, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, d.maxResponse))
	if err != nil {
		return nil, &TransportError{Method: out.method, URL: out.url, Err: fmt.Errorf("failed to read response: %w", transportCause(ctx, err))}
	}

	d.metrics.ObserveStatus(d.source, resp.StatusCode)
	logger.Debug().Int("status", resp.StatusCode).Int64("duration_ms", duration.Milliseconds()).Int("bytes", len(body)).Msg("api response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RemoteError{Status: resp.StatusCode, Body: string(body), Method: out.method, URL: out.url}
	}

	result := &Result{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		Duration:    duration,
	}
	if len(body) > 0 {
		var decoded any
		if json.Unmarshal(body, &decoded) == nil {
			result.JSON = decoded
			result.IsJSON = true
		}
	}
	return result, nil
}

// transportCause prefers the context error so callers can test for
// context.Canceled or context.DeadlineExceeded.
func transportCause(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	return err
}
