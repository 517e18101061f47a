package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatVersion is a parsed baseline format version.
type FormatVersion struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
	Patch int `json:"patch"`
}

func (v FormatVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare orders versions lexicographically over (major, minor, patch).
func (v FormatVersion) Compare(other FormatVersion) int {
	switch {
	case v.Major != other.Major:
		return compareInt(v.Major, other.Major)
	case v.Minor != other.Minor:
		return compareInt(v.Minor, other.Minor)
	default:
		return compareInt(v.Patch, other.Patch)
	}
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// CurrentFormatVersion returns the parsed current baseline format version.
func CurrentFormatVersion() FormatVersion {
	return mustParseVersion(BaselineFormatVersion)
}

func mustParseVersion(raw string) FormatVersion {
	parts := strings.Split(raw, ".")
	version := FormatVersion{}
	if len(parts) > 0 {
		version.Major, _ = strconv.Atoi(parts[0])
	}
	if len(parts) > 1 {
		version.Minor, _ = strconv.Atoi(parts[1])
	}
	if len(parts) > 2 {
		version.Patch, _ = strconv.Atoi(parts[2])
	}
	return version
}

// ParseFormatVersion parses a baseline version string. Accepted forms are a
// dotted triple, a partial dotted prefix (missing components default to 0),
// and a bare integer major from the legacy format. An empty or entirely
// unparsable value defaults to the current format version: historically some
// baselines carried malformed versions, and hard-rejecting them would make
// old-but-valid baselines unloadable.
func ParseFormatVersion(raw string) FormatVersion {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return CurrentFormatVersion()
	}
	parts := strings.Split(raw, ".")
	major, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || major < 0 {
		return CurrentFormatVersion()
	}
	version := FormatVersion{Major: major}
	if len(parts) > 1 {
		if minor, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil && minor >= 0 {
			version.Minor = minor
		}
	}
	if len(parts) > 2 {
		if patch, err := strconv.Atoi(strings.TrimSpace(parts[2])); err == nil && patch >= 0 {
			version.Patch = patch
		}
	}
	return version
}

// Compatible reports whether two version strings share a major component.
// The relation is reflexive and symmetric and keyed only on major.
func Compatible(a, b string) bool {
	return ParseFormatVersion(a).Major == ParseFormatVersion(b).Major
}

// CompatibilityResult is the non-throwing form of a compatibility check, for
// callers that want to proceed with an explicit override.
type CompatibilityResult struct {
	Compatible      bool          `json:"compatible"`
	BaselineVersion FormatVersion `json:"baselineVersion"`
	CurrentVersion  FormatVersion `json:"currentVersion"`
}

// CheckCompatibility returns the compatibility verdict between a baseline
// version and the current format as data.
func CheckCompatibility(baselineVersion string) CompatibilityResult {
	parsed := ParseFormatVersion(baselineVersion)
	current := CurrentFormatVersion()
	return CompatibilityResult{
		Compatible:      parsed.Major == current.Major,
		BaselineVersion: parsed,
		CurrentVersion:  current,
	}
}

// AssertCompatibility returns a VersionMismatchError when the baseline's
// major version differs from the current format. Silent comparison across
// incompatible formats yields misleading drift reports, so this is never
// recovered implicitly.
func AssertCompatibility(baselineVersion string) error {
	result := CheckCompatibility(baselineVersion)
	if result.Compatible {
		return nil
	}
	return &VersionMismatchError{
		BaselineVersion: result.BaselineVersion,
		CurrentVersion:  result.CurrentVersion,
	}
}

// Migration lifts a baseline from one major format to the next.
type Migration struct {
	Name      string
	FromMajor int
	Apply     func(Baseline) Baseline
}

// migrations, ordered by FromMajor. Migrations bridge format-breaking major
// changes only; minor and patch differences need none.
var migrations = []Migration{
	{
		Name:      "v1-profile-summary",
		FromMajor: 1,
		Apply:     migrateV1ProfileSummary,
	},
}

// migrateV1ProfileSummary lifts the v1 layout: v1 baselines carried no
// summary rollup and could omit the fingerprint map and probe mode.
func migrateV1ProfileSummary(baseline Baseline) Baseline {
	if baseline.Fingerprints == nil {
		baseline.Fingerprints = make(map[string]ToolFingerprint)
	}
	if baseline.Metadata.Mode == "" {
		baseline.Metadata.Mode = ModeFull
	}
	baseline.Summary = SummarizeFingerprints(baseline.Fingerprints)
	return baseline
}

// MigrationsFor returns, in application order, the names of migrations
// needed to bring a version to the current format. Same-major versions need
// none.
func MigrationsFor(version string) []string {
	parsed := ParseFormatVersion(version)
	current := CurrentFormatVersion()
	var names []string
	for _, migration := range migrations {
		if migration.FromMajor >= parsed.Major && migration.FromMajor < current.Major {
			names = append(names, migration.Name)
		}
	}
	return names
}

// MigrateBaseline brings an older-format baseline to the current format and
// stamps it with the current version. Migrating a baseline whose version is
// numerically newer than the current format returns a DowngradeError; a
// downgrade is never silently coerced. Already-current baselines pass
// through unchanged, so migration is idempotent.
func MigrateBaseline(baseline Baseline) (Baseline, error) {
	parsed := ParseFormatVersion(baseline.Version)
	current := CurrentFormatVersion()

	if parsed.Compare(current) > 0 {
		return Baseline{}, &DowngradeError{BaselineVersion: parsed, CurrentVersion: current}
	}
	if parsed.Major == current.Major {
		return baseline, nil
	}

	for _, migration := range migrations {
		if migration.FromMajor >= parsed.Major && migration.FromMajor < current.Major {
			baseline = migration.Apply(baseline)
		}
	}
	baseline.Version = BaselineFormatVersion

	hash, err := BaselineHash(baseline)
	if err != nil {
		return Baseline{}, err
	}
	baseline.Hash = hash
	return baseline, nil
}
