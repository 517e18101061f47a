package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFormatVersion(t *testing.T) {
	require.Equal(t, FormatVersion{Major: 1, Minor: 2, Patch: 3}, ParseFormatVersion("1.2.3"))
	require.Equal(t, FormatVersion{Major: 1}, ParseFormatVersion("1"))
	require.Equal(t, FormatVersion{Major: 1, Minor: 2}, ParseFormatVersion("1.2"))
	require.Equal(t, FormatVersion{Major: 1, Patch: 2}, ParseFormatVersion("1.x.2"))

	// Fail-open: empty or garbage versions default to the current format so
	// historically malformed baselines stay loadable.
	require.Equal(t, CurrentFormatVersion(), ParseFormatVersion(""))
	require.Equal(t, CurrentFormatVersion(), ParseFormatVersion("garbage"))
}

func TestCompatible(t *testing.T) {
	require.True(t, Compatible("1.2.3", "1.9.0"))
	require.False(t, Compatible("1.0.0", "2.0.0"))

	// Reflexive and symmetric.
	require.True(t, Compatible("3.1.0", "3.1.0"))
	require.Equal(t, Compatible("1.0.0", "2.0.0"), Compatible("2.0.0", "1.0.0"))
}

func TestFormatVersionCompare(t *testing.T) {
	require.Equal(t, -1, FormatVersion{1, 9, 9}.Compare(FormatVersion{2, 0, 0}))
	require.Equal(t, 1, FormatVersion{1, 3, 0}.Compare(FormatVersion{1, 2, 9}))
	require.Equal(t, 0, FormatVersion{1, 2, 3}.Compare(FormatVersion{1, 2, 3}))
	require.Equal(t, -1, FormatVersion{1, 2, 3}.Compare(FormatVersion{1, 2, 4}))
}

func TestCheckCompatibility(t *testing.T) {
	result := CheckCompatibility("1.0.0")
	require.False(t, result.Compatible)
	require.Equal(t, FormatVersion{Major: 1}, result.BaselineVersion)
	require.Equal(t, CurrentFormatVersion(), result.CurrentVersion)

	require.True(t, CheckCompatibility(BaselineFormatVersion).Compatible)
}

func TestAssertCompatibility(t *testing.T) {
	require.NoError(t, AssertCompatibility(BaselineFormatVersion))

	err := AssertCompatibility("1.0.0")
	require.Error(t, err)
	var mismatch *VersionMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, FormatVersion{Major: 1}, mismatch.BaselineVersion)
	require.Equal(t, CurrentFormatVersion(), mismatch.CurrentVersion)

	code, ok := CodeFrom(err)
	require.True(t, ok)
	require.Equal(t, CodeVersionMismatch, code)
}

func TestMigrationsFor(t *testing.T) {
	require.Equal(t, []string{"v1-profile-summary"}, MigrationsFor("1.0.0"))
	require.Empty(t, MigrationsFor(BaselineFormatVersion))
	require.Empty(t, MigrationsFor("2.0.1"))
}

func TestMigrateBaseline_LiftsLegacyFormat(t *testing.T) {
	legacy := Baseline{
		Version: "1.0.0",
		Metadata: BaselineMetadata{
			ServerCommand: "legacy-server",
		},
	}

	migrated, err := MigrateBaseline(legacy)
	require.NoError(t, err)
	require.Equal(t, BaselineFormatVersion, migrated.Version)
	require.NotNil(t, migrated.Fingerprints)
	require.Equal(t, ModeFull, migrated.Metadata.Mode)
	require.NotEmpty(t, migrated.Hash)
}

func TestMigrateBaseline_LegacyBareIntegerVersion(t *testing.T) {
	legacy := Baseline{Version: "1"}

	migrated, err := MigrateBaseline(legacy)
	require.NoError(t, err)
	require.Equal(t, BaselineFormatVersion, migrated.Version)
}

func TestMigrateBaseline_IdempotentWhenCurrent(t *testing.T) {
	baseline := sampleBaseline(t)

	migrated, err := MigrateBaseline(baseline)
	require.NoError(t, err)
	require.Equal(t, baseline, migrated)

	again, err := MigrateBaseline(migrated)
	require.NoError(t, err)
	require.Equal(t, migrated, again)
}

func TestMigrateBaseline_DowngradeIsFatal(t *testing.T) {
	_, err := MigrateBaseline(Baseline{Version: "99.0.0"})
	require.Error(t, err)

	var downgrade *DowngradeError
	require.ErrorAs(t, err, &downgrade)
	require.Equal(t, 99, downgrade.BaselineVersion.Major)

	code, ok := CodeFrom(err)
	require.True(t, ok)
	require.Equal(t, CodeDowngrade, code)
}

func TestMigrateBaseline_SameMajorNewerMinorIsDowngrade(t *testing.T) {
	// Numerically newer than current, even within the same major: still a
	// downgrade, never coerced.
	_, err := MigrateBaseline(Baseline{Version: "2.9.0"})
	require.Error(t, err)
	var downgrade *DowngradeError
	require.ErrorAs(t, err, &downgrade)
}
