package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/researchpro/orchestrator/internal/circuitbreaker"
	"github.com/researchpro/orchestrator/internal/metrics"
	"github.com/researchpro/orchestrator/internal/research"
	"github.com/researchpro/orchestrator/internal/tracing"
)

// HTTPGateway talks to the external agent service over HTTP/JSON. One
// endpoint per capability; every call is rate limited so a burst of
// research requests cannot starve the agent service, and a circuit
// breaker fails fast when the service is down.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker *circuitbreaker.Breaker
	logger  *zap.Logger
}

// HTTPGatewayConfig tunes the gateway client.
type HTTPGatewayConfig struct {
	BaseURL        string
	Timeout        time.Duration
	RequestsPerSec float64
	Burst          int
}

// NewHTTPGateway builds a gateway client for the agent service.
func NewHTTPGateway(cfg HTTPGatewayConfig, logger *zap.Logger) *HTTPGateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	return &HTTPGateway{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Burst),
		breaker: circuitbreaker.New("agent-service", circuitbreaker.DefaultConfig(), logger),
		logger:  logger,
	}
}

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type searchResponse struct {
	Sources []research.Source `json:"sources"`
}

func (g *HTTPGateway) Search(ctx context.Context, angle string, maxResults int) ([]research.Source, error) {
	var resp searchResponse
	err := g.call(ctx, CapabilitySearch, "/agents/search", searchRequest{Query: angle, MaxResults: maxResults}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Sources, nil
}

type factCheckRequest struct {
	Sources []research.Source `json:"sources"`
}

type factCheckResponse struct {
	Sources []research.Source `json:"sources"`
}

func (g *HTTPGateway) FactCheck(ctx context.Context, sources []research.Source) ([]research.Source, error) {
	var resp factCheckResponse
	err := g.call(ctx, CapabilityFactCheck, "/agents/fact-check", factCheckRequest{Sources: sources}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Sources, nil
}

type summarizeRequest struct {
	Sources         []research.Source `json:"sources"`
	PreviousSummary string            `json:"previous_summary,omitempty"`
}

type summarizeResponse struct {
	Content string `json:"content"`
}

func (g *HTTPGateway) Summarize(ctx context.Context, sources []research.Source, previousSummary string) (string, error) {
	var resp summarizeResponse
	err := g.call(ctx, CapabilitySummarize, "/agents/summarize", summarizeRequest{Sources: sources, PreviousSummary: previousSummary}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

type reportResponse struct {
	Synthesis string `json:"synthesis"`
}

func (g *HTTPGateway) GenerateReport(ctx context.Context, req ReportRequest) (string, error) {
	var resp reportResponse
	err := g.call(ctx, CapabilityReport, "/agents/report", req, &resp)
	if err != nil {
		return "", err
	}
	return resp.Synthesis, nil
}

type approvalRequest struct {
	SessionID string `json:"session_id"`
	Summary   string `json:"summary"`
}

type approvalResponse struct {
	Approved bool `json:"approved"`
}

func (g *HTTPGateway) RequestApproval(ctx context.Context, sessionID, summary string) (bool, error) {
	var resp approvalResponse
	err := g.call(ctx, CapabilityApproval, "/approvals/request", approvalRequest{SessionID: sessionID, Summary: summary}, &resp)
	if err != nil {
		return false, err
	}
	return resp.Approved, nil
}

func (g *HTTPGateway) call(ctx context.Context, capability, path string, payload, dest interface{}) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return &research.UpstreamAgentError{Capability: capability, Err: err}
	}

	start := time.Now()
	err := g.breaker.Execute(func() error {
		return g.post(ctx, path, payload, dest)
	})
	metrics.AgentCallDuration.WithLabelValues(capability).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.AgentCalls.WithLabelValues(capability, "error").Inc()
		g.logger.Warn("Agent call failed",
			zap.String("capability", capability),
			zap.Error(err),
		)
		return &research.UpstreamAgentError{Capability: capability, Err: err}
	}
	metrics.AgentCalls.WithLabelValues(capability, "ok").Inc()
	return nil
}

func (g *HTTPGateway) post(ctx context.Context, path string, payload, dest interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	tracing.InjectTraceparent(ctx, req)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("agent service call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("agent service returned %d: %s", resp.StatusCode, string(snippet))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
