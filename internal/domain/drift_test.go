package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func baselineWithTools(t *testing.T, fingerprints map[string]ToolFingerprint) Baseline {
	t.Helper()
	baseline, err := NewBaseline(BaselineMetadata{
		GeneratedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		Mode:        ModeFull,
	}, fingerprints)
	require.NoError(t, err)
	return baseline
}

func TestCompareBaselines_IdenticalIsNone(t *testing.T) {
	baseline := sampleBaseline(t)

	diff, err := CompareBaselines(baseline, baseline, nil)
	require.NoError(t, err)

	require.Equal(t, SeverityNone, diff.Severity)
	require.Empty(t, diff.ToolsAdded)
	require.Empty(t, diff.ToolsRemoved)
	require.Empty(t, diff.ToolsModified)
}

func TestCompareBaselines_RemovedToolIsBreaking(t *testing.T) {
	previous := baselineWithTools(t, map[string]ToolFingerprint{
		"echo":  {Name: "echo", SchemaHash: "aaaa"},
		"fetch": {Name: "fetch", SchemaHash: "bbbb"},
	})
	current := baselineWithTools(t, map[string]ToolFingerprint{
		"echo": {Name: "echo", SchemaHash: "aaaa"},
	})

	diff, err := CompareBaselines(previous, current, nil)
	require.NoError(t, err)

	require.Equal(t, []string{"fetch"}, diff.ToolsRemoved)
	require.Equal(t, SeverityBreaking, diff.Severity)
	require.Equal(t, 1, diff.Counts[SeverityBreaking])
}

func TestCompareBaselines_AddedToolIsInfo(t *testing.T) {
	previous := baselineWithTools(t, map[string]ToolFingerprint{
		"echo": {Name: "echo", SchemaHash: "aaaa"},
	})
	current := baselineWithTools(t, map[string]ToolFingerprint{
		"echo": {Name: "echo", SchemaHash: "aaaa"},
		"new":  {Name: "new", SchemaHash: "cccc"},
	})

	diff, err := CompareBaselines(previous, current, nil)
	require.NoError(t, err)

	require.Equal(t, []string{"new"}, diff.ToolsAdded)
	require.Equal(t, SeverityInfo, diff.Severity)
}

func TestCompareBaselines_ModifiedSchemaUsesPolicy(t *testing.T) {
	previous := baselineWithTools(t, map[string]ToolFingerprint{
		"echo": {Name: "echo", SchemaHash: "aaaa", Description: "old"},
	})
	current := baselineWithTools(t, map[string]ToolFingerprint{
		"echo": {Name: "echo", SchemaHash: "dddd", Description: "new"},
	})

	policy := ModificationPolicyFunc(func(_, field, _, _ string) Severity {
		if field == ChangeFieldSchema {
			return SeverityBreaking
		}
		return SeverityInfo
	})

	diff, err := CompareBaselines(previous, current, policy)
	require.NoError(t, err)

	require.Len(t, diff.ToolsModified, 1)
	modification := diff.ToolsModified[0]
	require.Equal(t, "echo", modification.Tool)
	require.Len(t, modification.Changes, 2)
	require.Equal(t, SeverityBreaking, diff.Severity)
	require.Equal(t, 1, diff.Counts[SeverityBreaking])
	require.Equal(t, 1, diff.Counts[SeverityInfo])
}

func TestCompareBaselines_AnnotationChange(t *testing.T) {
	previous := baselineWithTools(t, map[string]ToolFingerprint{
		"write": {Name: "write", SchemaHash: "aaaa"},
	})
	current := baselineWithTools(t, map[string]ToolFingerprint{
		"write": {
			Name:        "write",
			SchemaHash:  "aaaa",
			Annotations: &ToolAnnotations{DestructiveHint: boolPtr(true)},
		},
	})

	diff, err := CompareBaselines(previous, current, nil)
	require.NoError(t, err)

	require.Len(t, diff.ToolsModified, 1)
	require.Equal(t, ChangeFieldAnnotations, diff.ToolsModified[0].Changes[0].Field)
	require.Equal(t, SeverityWarning, diff.Severity)
}

func TestCompareBaselines_SeverityRollsUpToMax(t *testing.T) {
	previous := baselineWithTools(t, map[string]ToolFingerprint{
		"gone":    {Name: "gone", SchemaHash: "aaaa"},
		"changed": {Name: "changed", Description: "old"},
	})
	current := baselineWithTools(t, map[string]ToolFingerprint{
		"changed": {Name: "changed", Description: "new"},
		"added":   {Name: "added"},
	})

	diff, err := CompareBaselines(previous, current, nil)
	require.NoError(t, err)

	require.Equal(t, SeverityBreaking, diff.Severity)
	require.Equal(t, 1, diff.Counts[SeverityBreaking])
	require.Equal(t, 2, diff.Counts[SeverityInfo])
}

func TestCompareBaselines_VersionMismatch(t *testing.T) {
	previous := sampleBaseline(t)
	previous.Version = "1.0.0"
	current := sampleBaseline(t)

	_, err := CompareBaselines(previous, current, nil)
	var mismatch *VersionMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestAcceptDrift_PreservesFingerprints(t *testing.T) {
	baseline := sampleBaseline(t)
	diff := Diff{ToolsRemoved: []string{"fetch"}, Severity: SeverityBreaking}
	acceptedAt := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

	accepted, err := AcceptDrift(baseline, diff, "ops@example", "intentional removal", acceptedAt)
	require.NoError(t, err)

	require.Empty(t, cmp.Diff(baseline.Fingerprints, accepted.Fingerprints))
	require.NotNil(t, accepted.Acceptance)
	require.Equal(t, "ops@example", accepted.Acceptance.AcceptedBy)
	require.Equal(t, acceptedAt, accepted.Acceptance.AcceptedAt)
	require.NotEmpty(t, accepted.Acceptance.DiffDigest)
	require.NotEqual(t, baseline.Hash, accepted.Hash)

	// Hash matches recomputation, so accepted baselines round-trip.
	recomputed, err := BaselineHash(accepted)
	require.NoError(t, err)
	require.Equal(t, recomputed, accepted.Hash)
}
