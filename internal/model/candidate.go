// Package model defines the records shared by every stage of an upgrade audit.
package model

import "strings"

// Verdict is the three-valued risk classification attached to an upgrade candidate.
type Verdict string

// Verdict constants
const (
	// VerdictSafe means the backend found no breaking change affecting the host
	VerdictSafe Verdict = "safe"
	// VerdictRisky means the backend reported a breaking or incompatible change
	VerdictRisky Verdict = "risky"
	// VerdictUnknown means no usable assessment could be obtained
	VerdictUnknown Verdict = "unknown"
)

// ParseVerdict maps a free string onto a Verdict.
// Anything that is not recognised is VerdictUnknown.
func ParseVerdict(s string) Verdict {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "safe":
		return VerdictSafe
	case "risky", "unsafe", "not safe":
		return VerdictRisky
	default:
		return VerdictUnknown
	}
}

// String returns the lowercase verdict word.
func (v Verdict) String() string {
	if v == "" {
		return string(VerdictUnknown)
	}
	return string(v)
}

// ChangeKind describes which part of a Debian version moved between releases.
type ChangeKind string

// ChangeKind constants
const (
	ChangeMajor    ChangeKind = "major"
	ChangeMinor    ChangeKind = "minor"
	ChangePatch    ChangeKind = "patch"
	ChangeRevision ChangeKind = "revision"
	ChangeOther    ChangeKind = "other"
)

// PackageRecord is one package as read from a listing.
type PackageRecord struct {
	// Name is the Debian package name
	Name string
	// InstalledVersion is the version currently on the host
	InstalledVersion string
	// CandidateVersion is the version offered by the archive (upgrade candidates only)
	CandidateVersion string
	// Origin is the archive suite the line came from (e.g. "bookworm-security")
	Origin string
	// Arch is the package architecture when the listing carries it
	Arch string
}

// UpgradeCandidate is a package with both an installed and a newer available version.
type UpgradeCandidate struct {
	PackageRecord

	// Verdict is the risk classification; empty until assessed
	Verdict Verdict
	// Rationale is the explanation backing the verdict
	Rationale string
	// Breaking is set when the backend reported breaking changes
	Breaking bool
	// ConfigPath is the configuration file shown to the backend, if any
	ConfigPath string
	// ChangeKind is derived from the two versions
	ChangeKind ChangeKind
}

// Assessed reports whether a verdict has been attached.
func (c *UpgradeCandidate) Assessed() bool {
	return c.Verdict != ""
}

// SetAssessment attaches an assessment outcome to the candidate.
func (c *UpgradeCandidate) SetAssessment(v Verdict, rationale string) {
	if v == "" {
		v = VerdictUnknown
	}
	c.Verdict = v
	c.Rationale = rationale
}

// HasVersions reports whether both sides of the transition are known.
func (c *UpgradeCandidate) HasVersions() bool {
	return c.InstalledVersion != "" && c.CandidateVersion != ""
}
