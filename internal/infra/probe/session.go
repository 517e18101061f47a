// Package probe runs probe sessions against a connected MCP server and
// assembles the resulting baselines.
package probe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mcpdrift/internal/domain"
	"mcpdrift/internal/infra/telemetry"
)

// ToolCaller is the transport-side collaborator a session probes through.
// Implementations own connection lifecycle; the session never dials.
type ToolCaller interface {
	ListTools(ctx context.Context) ([]domain.ToolDefinition, error)
	CallTool(ctx context.Context, name string, args map[string]any) (domain.ToolResult, error)
}

// ArgumentSource produces the base arguments for a tool call before ledger
// substitution. How arguments are generated is not this package's concern.
type ArgumentSource interface {
	Arguments(ctx context.Context, tool domain.ToolDefinition) (map[string]any, error)
}

// SessionConfig configures one probe session.
type SessionConfig struct {
	Mode          string
	ServerCommand string
	CallsPerTool  int
	CallTimeout   time.Duration
	Ledger        domain.LedgerConfig
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.Mode == "" {
		c.Mode = domain.ModeFull
	}
	if c.CallsPerTool <= 0 {
		c.CallsPerTool = 3
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 30 * time.Second
	}
	if c.Ledger.MaxValues == 0 && c.Ledger.MaxRecent == 0 && !c.Ledger.Enabled {
		c.Ledger = domain.DefaultLedgerConfig()
	}
	return c
}

// Session probes one server once. Each session owns its ledger, so parallel
// sessions never share substitution state.
type Session struct {
	caller  ToolCaller
	source  ArgumentSource
	graph   domain.DependencyGraph
	cfg     SessionConfig
	logger  *zap.Logger
	metrics *telemetry.PrometheusMetrics
}

// SessionOptions bundles session dependencies.
type SessionOptions struct {
	Caller         ToolCaller
	ArgumentSource ArgumentSource
	Graph          domain.DependencyGraph
	Config         SessionConfig
	Logger         *zap.Logger
	Metrics        *telemetry.PrometheusMetrics
}

// NewSession creates a probe session.
func NewSession(opts SessionOptions) (*Session, error) {
	if opts.Caller == nil {
		return nil, fmt.Errorf("tool caller is required")
	}
	source := opts.ArgumentSource
	if source == nil {
		source = NewSchemaArgumentSource()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		caller:  opts.Caller,
		source:  source,
		graph:   opts.Graph,
		cfg:     opts.Config.withDefaults(),
		logger:  logger.Named("probe"),
		metrics: opts.Metrics,
	}, nil
}

// Run discovers tools, probes them in dependency order, and assembles a
// baseline. A tool call that fails or times out simply contributes a failed
// observation; the ledger is left exactly as if the call had not happened.
func (s *Session) Run(ctx context.Context) (domain.Baseline, error) {
	tools, err := s.caller.ListTools(ctx)
	if err != nil {
		s.observeSession(err)
		return domain.Baseline{}, fmt.Errorf("list tools: %w", err)
	}

	sessionID := uuid.NewString()
	ordered := domain.DependencyOrder(tools, s.graph)
	ledger := domain.NewSessionLedger(s.cfg.Ledger)
	fingerprints := make(map[string]domain.ToolFingerprint, len(ordered))

	s.logger.Info("session started",
		zap.String("session_id", sessionID),
		zap.String("mode", s.cfg.Mode),
		zap.Int("tools", len(ordered)))

	for _, tool := range ordered {
		if err := ctx.Err(); err != nil {
			s.observeSession(err)
			return domain.Baseline{}, err
		}
		fingerprint, err := s.probeTool(ctx, tool, ledger)
		if err != nil {
			s.observeSession(err)
			return domain.Baseline{}, err
		}
		fingerprints[tool.Name] = fingerprint
	}

	baseline, err := domain.NewBaseline(domain.BaselineMetadata{
		GeneratedAt:   time.Now().UTC(),
		ServerCommand: s.cfg.ServerCommand,
		Mode:          s.cfg.Mode,
		SessionID:     sessionID,
	}, fingerprints)
	if err != nil {
		s.observeSession(err)
		return domain.Baseline{}, err
	}

	s.observeSession(nil)
	s.logger.Info("session finished",
		zap.String("session_id", sessionID),
		zap.String("hash", baseline.Hash),
		zap.Int("tools", len(baseline.Tools)))
	return baseline, nil
}

func (s *Session) probeTool(ctx context.Context, tool domain.ToolDefinition, ledger *domain.SessionLedger) (domain.ToolFingerprint, error) {
	builder := domain.NewFingerprintBuilder(tool)
	if tool.IsDestructive() {
		builder.AddSecurityNote("declares destructive hint; sequenced after same-layer tools")
	}

	shapes := make(map[string]struct{})
	for call := 0; call < s.cfg.CallsPerTool; call++ {
		args, err := s.source.Arguments(ctx, tool)
		if err != nil {
			s.logger.Warn("argument generation failed",
				zap.String("tool", tool.Name), zap.Error(err))
			break
		}
		substituted := ledger.ApplyState(tool.Name, args)
		if s.metrics != nil {
			s.metrics.ObserveLedgerSubstitutions(len(substituted))
		}
		if len(substituted) > 0 {
			s.logger.Debug("ledger substitution",
				zap.String("tool", tool.Name),
				zap.Strings("params", substituted))
		}

		callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
		start := time.Now()
		result, err := s.caller.CallTool(callCtx, tool.Name, args)
		latency := time.Since(start)
		cancel()

		if err != nil {
			builder.Observe(domain.ResponseFingerprint{}, latency, true)
			builder.RecordErrorPattern(errorPattern(err.Error()))
			if s.metrics != nil {
				s.metrics.ObserveToolCall(tool.Name, latency, true)
			}
			continue
		}

		response := domain.ClassifyResponse(result)
		builder.Observe(response, latency, result.IsError)
		if s.metrics != nil {
			s.metrics.ObserveToolCall(tool.Name, latency, result.IsError)
		}
		if result.IsError {
			if text, ok := domain.ExtractText(result); ok {
				builder.RecordErrorPattern(errorPattern(text))
			}
			continue
		}
		ledger.RecordResponse(tool.Name, result)
		if response.Hash != "" {
			shapes[response.Hash] = struct{}{}
		}
	}

	if len(shapes) == 1 && s.cfg.CallsPerTool > 1 {
		builder.AddAssertion(fmt.Sprintf("response shape stable across %d calls", s.cfg.CallsPerTool))
	}

	return builder.Build(time.Now().UTC())
}

func (s *Session) observeSession(err error) {
	if s.metrics != nil {
		s.metrics.ObserveSession(s.cfg.Mode, err)
	}
}

// errorPattern reduces an error message to a short, stable pattern: first
// line only, digits collapsed, truncated.
func errorPattern(message string) string {
	if idx := strings.IndexByte(message, '\n'); idx >= 0 {
		message = message[:idx]
	}
	var b strings.Builder
	lastDigit := false
	for _, r := range message {
		if r >= '0' && r <= '9' {
			if !lastDigit {
				b.WriteByte('N')
			}
			lastDigit = true
			continue
		}
		lastDigit = false
		b.WriteRune(r)
	}
	pattern := strings.TrimSpace(b.String())
	if len(pattern) > 120 {
		pattern = pattern[:120]
	}
	return pattern
}
