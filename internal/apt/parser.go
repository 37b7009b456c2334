// Package apt reads Debian package listings and pairs installed packages with their upgrades.
package apt

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"github.com/obentoo/aptaudit/internal/model"
)

// nameRegex matches a Debian package name (policy 5.6.1)
var nameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9+.-]+$`)

// upgradableFromRegex matches the "[upgradable from: X]" trailer of apt list --upgradable
var upgradableFromRegex = regexp.MustCompile(`\[upgradable from: ([^\]]+)\]`)

// Listing is an insertion-ordered mapping from package name to record.
type Listing struct {
	records map[string]model.PackageRecord
	order   []string
}

// NewListing creates an empty listing.
func NewListing() *Listing {
	return &Listing{
		records: make(map[string]model.PackageRecord),
	}
}

// Add inserts or replaces a record. A replaced record keeps its original position.
func (l *Listing) Add(rec model.PackageRecord) {
	if _, exists := l.records[rec.Name]; !exists {
		l.order = append(l.order, rec.Name)
	}
	l.records[rec.Name] = rec
}

// Get returns the record for a package name.
func (l *Listing) Get(name string) (model.PackageRecord, bool) {
	rec, ok := l.records[name]
	return rec, ok
}

// Len returns the number of packages in the listing.
func (l *Listing) Len() int {
	return len(l.order)
}

// Names returns package names in insertion order.
func (l *Listing) Names() []string {
	names := make([]string, len(l.order))
	copy(names, l.order)
	return names
}

// Records returns records in insertion order.
func (l *Listing) Records() []model.PackageRecord {
	recs := make([]model.PackageRecord, 0, len(l.order))
	for _, name := range l.order {
		recs = append(recs, l.records[name])
	}
	return recs
}

// Kind tells the parser which version column a listing carries.
type Kind int

const (
	// KindInstalled is `apt list --installed`: the version column is the installed version
	KindInstalled Kind = iota
	// KindUpgradable is `apt list --upgradable`: the version column is the candidate version
	KindUpgradable
)

// String returns a human name for log messages.
func (k Kind) String() string {
	if k == KindUpgradable {
		return "upgradable"
	}
	return "installed"
}

// ParseResult is the outcome of parsing one listing.
type ParseResult struct {
	// Listing holds the well-formed records
	Listing *Listing
	// Skipped counts malformed lines that were ignored
	Skipped int
}

// ParseListing parses the output of `apt list --installed` or `apt list --upgradable`.
// Both the native "name/origin version arch [flags]" shape and a plain
// "name version" shape are accepted. Malformed lines are skipped and counted.
func ParseListing(r io.Reader, kind Kind) (*ParseResult, error) {
	result := &ParseResult{Listing: NewListing()}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip blank lines, comments and the apt banner
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "Listing...") {
			continue
		}

		rec, ok := ParseLine(line, kind)
		if !ok {
			result.Skipped++
			continue
		}
		result.Listing.Add(rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// ParseListingString is ParseListing over an in-memory string.
func ParseListingString(s string, kind Kind) *ParseResult {
	// Only an over-long line can fail a strings.Reader scan
	result, err := ParseListing(strings.NewReader(s), kind)
	if err != nil {
		return &ParseResult{Listing: NewListing(), Skipped: strings.Count(s, "\n") + 1}
	}
	return result
}

// ParseLine parses a single listing line into a record.
// For KindInstalled the version column becomes InstalledVersion. For
// KindUpgradable it becomes CandidateVersion, and InstalledVersion is taken
// from the "[upgradable from: X]" trailer when present.
func ParseLine(line string, kind Kind) (model.PackageRecord, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return model.PackageRecord{}, false
	}

	rec := model.PackageRecord{}

	// name/origin[,origin...]
	name := fields[0]
	if i := strings.IndexByte(name, '/'); i >= 0 {
		origins := name[i+1:]
		name = name[:i]
		if j := strings.IndexByte(origins, ','); j >= 0 {
			origins = origins[:j]
		}
		rec.Origin = origins
	}

	// Multi-arch listings qualify the name as name:arch
	if i := strings.IndexByte(name, ':'); i >= 0 {
		name = name[:i]
	}

	version := fields[1]
	if !nameRegex.MatchString(name) || !ValidVersion(version) {
		return model.PackageRecord{}, false
	}

	rec.Name = name
	if len(fields) > 2 && !strings.HasPrefix(fields[2], "[") {
		rec.Arch = fields[2]
	}

	if kind == KindInstalled {
		rec.InstalledVersion = version
		return rec, true
	}

	rec.CandidateVersion = version
	if m := upgradableFromRegex.FindStringSubmatch(line); m != nil {
		if from := strings.TrimSpace(m[1]); ValidVersion(from) {
			rec.InstalledVersion = from
		}
	}

	return rec, true
}
