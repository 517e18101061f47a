package domain

import (
	"math"
	"sort"
	"time"
)

// SchemaEvolution records how a tool's response shape has changed over runs.
type SchemaEvolution struct {
	FirstSeen      time.Time `json:"firstSeen"`
	CurrentHash    string    `json:"currentHash,omitempty"`
	PreviousHashes []string  `json:"previousHashes,omitempty"`
}

// LatencyStats holds latency percentiles in milliseconds.
type LatencyStats struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// ToolFingerprint is the per-session behavioral record of one tool.
type ToolFingerprint struct {
	Name                string              `json:"name"`
	Description         string              `json:"description,omitempty"`
	SchemaHash          string              `json:"schemaHash,omitempty"`
	Annotations         *ToolAnnotations    `json:"annotations,omitempty"`
	Assertions          []string            `json:"assertions,omitempty"`
	SecurityNotes       []string            `json:"securityNotes,omitempty"`
	ResponseEvolution   SchemaEvolution     `json:"responseEvolution"`
	LastTested          time.Time           `json:"lastTested"`
	InputSchemaHash     string              `json:"inputSchemaHash,omitempty"`
	ResponseFingerprint ResponseFingerprint `json:"responseFingerprint"`
	OutputSchema        any                 `json:"outputSchema,omitempty"`
	ErrorPatterns       []string            `json:"errorPatterns,omitempty"`
	Latency             LatencyStats        `json:"latency"`
	SuccessRate         float64             `json:"successRate"`
	Confidence          float64             `json:"confidence"`
}

// confidenceFullSamples is the observation count at which sample size stops
// discounting confidence.
const confidenceFullSamples = 5

// FingerprintBuilder accumulates per-call observations for one tool and
// produces its ToolFingerprint. One builder per tool per session.
type FingerprintBuilder struct {
	tool          ToolDefinition
	latencies     []time.Duration
	successes     int
	failures      int
	responses     []ResponseFingerprint
	errorPatterns []string
	assertions    []string
	securityNotes []string
}

// NewFingerprintBuilder creates a builder for a tool signature.
func NewFingerprintBuilder(tool ToolDefinition) *FingerprintBuilder {
	return &FingerprintBuilder{tool: tool}
}

// Observe records one completed call.
func (b *FingerprintBuilder) Observe(response ResponseFingerprint, latency time.Duration, isError bool) {
	b.latencies = append(b.latencies, latency)
	if isError {
		b.failures++
	} else {
		b.successes++
		b.responses = append(b.responses, response)
	}
}

// RecordErrorPattern notes a recurring error message shape.
func (b *FingerprintBuilder) RecordErrorPattern(pattern string) {
	for _, existing := range b.errorPatterns {
		if existing == pattern {
			return
		}
	}
	b.errorPatterns = append(b.errorPatterns, pattern)
}

// AddAssertion records a verified behavioral assertion.
func (b *FingerprintBuilder) AddAssertion(assertion string) {
	b.assertions = append(b.assertions, assertion)
}

// AddSecurityNote records a security or limitation observation.
func (b *FingerprintBuilder) AddSecurityNote(note string) {
	b.securityNotes = append(b.securityNotes, note)
}

// Build assembles the fingerprint. now stamps LastTested and the first-seen
// time of the response evolution record.
func (b *FingerprintBuilder) Build(now time.Time) (ToolFingerprint, error) {
	schemaHash, err := HashSchema(b.tool.InputSchema)
	if err != nil {
		return ToolFingerprint{}, Wrap(CodeInvalidArgument, "fingerprint.Build", err)
	}

	fingerprint := ToolFingerprint{
		Name:            b.tool.Name,
		Description:     b.tool.Description,
		SchemaHash:      schemaHash,
		Annotations:     b.tool.Annotations,
		Assertions:      b.assertions,
		SecurityNotes:   b.securityNotes,
		LastTested:      now,
		InputSchemaHash: schemaHash,
		ErrorPatterns:   b.errorPatterns,
		Latency:         latencyPercentiles(b.latencies),
		SuccessRate:     b.successRate(),
		Confidence:      b.confidence(),
	}

	if len(b.responses) > 0 {
		last := b.responses[len(b.responses)-1]
		fingerprint.ResponseFingerprint = last
		fingerprint.OutputSchema = last.Schema
		fingerprint.ResponseEvolution = SchemaEvolution{
			FirstSeen:      now,
			CurrentHash:    last.Hash,
			PreviousHashes: b.previousHashes(last.Hash),
		}
	}
	return fingerprint, nil
}

func (b *FingerprintBuilder) successRate() float64 {
	total := b.successes + b.failures
	if total == 0 {
		return 0
	}
	return float64(b.successes) / float64(total)
}

// confidence discounts by sample size and by how consistently the response
// shape repeated across observations.
func (b *FingerprintBuilder) confidence() float64 {
	total := b.successes + b.failures
	if total == 0 {
		return 0
	}
	sampleWeight := math.Min(1, float64(total)/confidenceFullSamples)
	if len(b.responses) == 0 {
		return sampleWeight * b.successRate()
	}
	counts := make(map[string]int)
	for _, response := range b.responses {
		counts[response.Hash]++
	}
	mode := 0
	for _, count := range counts {
		if count > mode {
			mode = count
		}
	}
	agreement := float64(mode) / float64(len(b.responses))
	return sampleWeight * agreement
}

func (b *FingerprintBuilder) previousHashes(current string) []string {
	var previous []string
	seen := map[string]struct{}{current: {}}
	for _, response := range b.responses {
		if _, ok := seen[response.Hash]; ok {
			continue
		}
		seen[response.Hash] = struct{}{}
		previous = append(previous, response.Hash)
	}
	return previous
}

func latencyPercentiles(latencies []time.Duration) LatencyStats {
	if len(latencies) == 0 {
		return LatencyStats{}
	}
	millis := make([]float64, len(latencies))
	for i, latency := range latencies {
		millis[i] = float64(latency.Microseconds()) / 1000
	}
	sort.Float64s(millis)
	return LatencyStats{
		P50: percentile(millis, 0.50),
		P95: percentile(millis, 0.95),
		P99: percentile(millis, 0.99),
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	index := int(math.Ceil(p*float64(len(sorted)))) - 1
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
