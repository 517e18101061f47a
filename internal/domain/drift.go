package domain

import (
	"sort"
	"time"
)

// Severity classifies a drift finding.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityBreaking Severity = "breaking"
)

func (s Severity) rank() int {
	switch s {
	case SeverityBreaking:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// maxSeverity returns the higher of two severities.
func maxSeverity(a, b Severity) Severity {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// Fields the comparator inspects on a modified tool.
const (
	ChangeFieldSchema      = "schemaHash"
	ChangeFieldDescription = "description"
	ChangeFieldAnnotations = "annotations"
)

// FieldChange is one changed field on a modified tool.
type FieldChange struct {
	Field    string   `json:"field"`
	Previous string   `json:"previous,omitempty"`
	Current  string   `json:"current,omitempty"`
	Severity Severity `json:"severity"`
}

// ToolModification groups the field changes of one modified tool.
type ToolModification struct {
	Tool    string        `json:"tool"`
	Changes []FieldChange `json:"changes"`
}

// Diff is the drift report between two baselines.
type Diff struct {
	ToolsAdded    []string           `json:"toolsAdded,omitempty"`
	ToolsRemoved  []string           `json:"toolsRemoved,omitempty"`
	ToolsModified []ToolModification `json:"toolsModified,omitempty"`
	Severity      Severity           `json:"severity"`
	Counts        map[Severity]int   `json:"counts,omitempty"`
}

// ModificationPolicy decides how severe a modified-tool field change is.
// Whether a schema change narrows or widens the contract is not decidable
// here, so the policy is injected by the caller.
type ModificationPolicy interface {
	Classify(tool, field, previous, current string) Severity
}

// ModificationPolicyFunc adapts a function to a ModificationPolicy.
type ModificationPolicyFunc func(tool, field, previous, current string) Severity

func (f ModificationPolicyFunc) Classify(tool, field, previous, current string) Severity {
	return f(tool, field, previous, current)
}

// DefaultModificationPolicy treats schema and annotation changes as warnings
// and description changes as informational.
func DefaultModificationPolicy() ModificationPolicy {
	return ModificationPolicyFunc(func(_, field, _, _ string) Severity {
		switch field {
		case ChangeFieldSchema, ChangeFieldAnnotations:
			return SeverityWarning
		default:
			return SeverityInfo
		}
	})
}

// CompareBaselines diffs two baselines. An added tool is informational; a
// removed tool is always breaking, because silent capability loss is never
// acceptable; a tool whose schema hash, description, or annotations changed
// is modified, with per-change severity delegated to the policy. The rolled
// up severity is the maximum across all changes, and none only when nothing
// changed. Baselines must be version compatible; a major mismatch surfaces
// as a VersionMismatchError.
func CompareBaselines(previous, current Baseline, policy ModificationPolicy) (Diff, error) {
	if ParseFormatVersion(previous.Version).Major != ParseFormatVersion(current.Version).Major {
		return Diff{}, &VersionMismatchError{
			BaselineVersion: ParseFormatVersion(previous.Version),
			CurrentVersion:  ParseFormatVersion(current.Version),
		}
	}
	if policy == nil {
		policy = DefaultModificationPolicy()
	}

	diff := Diff{Severity: SeverityNone, Counts: make(map[Severity]int)}

	for _, name := range sortedFingerprintNames(current.Fingerprints) {
		if _, ok := previous.Fingerprints[name]; !ok {
			diff.ToolsAdded = append(diff.ToolsAdded, name)
			diff.record(SeverityInfo)
		}
	}
	for _, name := range sortedFingerprintNames(previous.Fingerprints) {
		currentFingerprint, ok := current.Fingerprints[name]
		if !ok {
			diff.ToolsRemoved = append(diff.ToolsRemoved, name)
			diff.record(SeverityBreaking)
			continue
		}
		modification := compareFingerprints(name, previous.Fingerprints[name], currentFingerprint, policy)
		if len(modification.Changes) == 0 {
			continue
		}
		diff.ToolsModified = append(diff.ToolsModified, modification)
		for _, change := range modification.Changes {
			diff.record(change.Severity)
		}
	}

	if len(diff.Counts) == 0 {
		diff.Counts = nil
	}
	return diff, nil
}

func (d *Diff) record(severity Severity) {
	d.Counts[severity]++
	d.Severity = maxSeverity(d.Severity, severity)
}

func compareFingerprints(name string, previous, current ToolFingerprint, policy ModificationPolicy) ToolModification {
	modification := ToolModification{Tool: name}
	appendChange := func(field, prev, curr string) {
		if prev == curr {
			return
		}
		modification.Changes = append(modification.Changes, FieldChange{
			Field:    field,
			Previous: prev,
			Current:  curr,
			Severity: policy.Classify(name, field, prev, curr),
		})
	}

	appendChange(ChangeFieldSchema, previous.SchemaHash, current.SchemaHash)
	appendChange(ChangeFieldDescription, previous.Description, current.Description)
	appendChange(ChangeFieldAnnotations, annotationKey(previous.Annotations), annotationKey(current.Annotations))
	return modification
}

func annotationKey(annotations *ToolAnnotations) string {
	if annotations == nil {
		return ""
	}
	key := ""
	if annotations.ReadOnlyHint {
		key += "readOnly,"
	}
	if annotations.DestructiveHint != nil && *annotations.DestructiveHint {
		key += "destructive,"
	}
	if annotations.IdempotentHint {
		key += "idempotent,"
	}
	return key
}

func sortedFingerprintNames(fingerprints map[string]ToolFingerprint) []string {
	names := make([]string, 0, len(fingerprints))
	for name := range fingerprints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AcceptDrift returns a copy of the current baseline stamped with acceptance
// provenance over the given diff. Fingerprint content is left untouched; only
// the acceptance record and the content hash change.
func AcceptDrift(current Baseline, diff Diff, acceptedBy, reason string, now time.Time) (Baseline, error) {
	digest, err := HashValue(diff)
	if err != nil {
		return Baseline{}, Wrap(CodeInternal, "drift.Accept", err)
	}
	current.Acceptance = &Acceptance{
		AcceptedAt: now,
		AcceptedBy: acceptedBy,
		Reason:     reason,
		DiffDigest: digest,
	}
	hash, err := BaselineHash(current)
	if err != nil {
		return Baseline{}, err
	}
	current.Hash = hash
	return current, nil
}
