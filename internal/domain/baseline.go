package domain

import (
	"sort"
	"time"
)

// BaselineFormatVersion is the current baseline document format.
const BaselineFormatVersion = "2.0.0"

// Probe modes recorded in baseline metadata.
const (
	ModeFull  = "full"
	ModeQuick = "quick"
)

// BaselineMetadata describes how a baseline was produced.
type BaselineMetadata struct {
	GeneratedAt   time.Time `json:"generatedAt"`
	ServerCommand string    `json:"serverCommand,omitempty"`
	Mode          string    `json:"mode,omitempty"`
	SessionID     string    `json:"sessionId,omitempty"`
}

// Acceptance records that a human accepted a drift against this baseline.
type Acceptance struct {
	AcceptedAt time.Time `json:"acceptedAt"`
	AcceptedBy string    `json:"acceptedBy"`
	Reason     string    `json:"reason,omitempty"`
	DiffDigest string    `json:"diffDigest,omitempty"`
}

// BaselineSummary is a rollup over a baseline's fingerprints.
type BaselineSummary struct {
	ToolCount       int            `json:"toolCount"`
	ResponseKinds   map[string]int `json:"responseKinds,omitempty"`
	MeanSuccessRate float64        `json:"meanSuccessRate"`
}

// Baseline is a versioned, content-hashed snapshot of a server's discovered
// tools and their fingerprints. It is created once per completed session and
// is the unit of persistence and drift comparison.
type Baseline struct {
	Version      string                     `json:"version"`
	Metadata     BaselineMetadata           `json:"metadata"`
	Tools        []string                   `json:"tools"`
	Fingerprints map[string]ToolFingerprint `json:"fingerprints"`
	Summary      BaselineSummary            `json:"summary"`
	Hash         string                     `json:"hash,omitempty"`
	Acceptance   *Acceptance                `json:"acceptance,omitempty"`
}

// NewBaseline assembles a baseline from session fingerprints, computing the
// sorted tool list, summary, and content hash.
func NewBaseline(metadata BaselineMetadata, fingerprints map[string]ToolFingerprint) (Baseline, error) {
	baseline := Baseline{
		Version:      BaselineFormatVersion,
		Metadata:     metadata,
		Fingerprints: fingerprints,
		Summary:      SummarizeFingerprints(fingerprints),
	}
	for name := range fingerprints {
		baseline.Tools = append(baseline.Tools, name)
	}
	sort.Strings(baseline.Tools)

	hash, err := BaselineHash(baseline)
	if err != nil {
		return Baseline{}, err
	}
	baseline.Hash = hash
	return baseline, nil
}

// BaselineHash computes the content hash of a baseline, excluding the hash
// field itself. The hash is a pure function of canonicalized content and is
// independent of key or iteration order.
func BaselineHash(baseline Baseline) (string, error) {
	baseline.Hash = ""
	hash, err := HashValue(baseline)
	if err != nil {
		return "", Wrap(CodeInternal, "baseline.Hash", err)
	}
	return hash, nil
}

// SummarizeFingerprints rolls fingerprints up into a baseline summary.
func SummarizeFingerprints(fingerprints map[string]ToolFingerprint) BaselineSummary {
	summary := BaselineSummary{ToolCount: len(fingerprints)}
	if len(fingerprints) == 0 {
		return summary
	}
	summary.ResponseKinds = make(map[string]int)
	var totalSuccess float64
	for _, fingerprint := range fingerprints {
		if kind := fingerprint.ResponseFingerprint.Kind; kind != "" {
			summary.ResponseKinds[string(kind)]++
		}
		totalSuccess += fingerprint.SuccessRate
	}
	summary.MeanSuccessRate = totalSuccess / float64(len(fingerprints))
	return summary
}
