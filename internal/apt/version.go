package apt

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/obentoo/aptaudit/internal/model"
)

// versionRegex matches [epoch:]upstream[-revision] where upstream starts with a digit
var versionRegex = regexp.MustCompile(`^(?:\d+:)?[0-9][A-Za-z0-9.+~:-]*$`)

// numberRegex extracts the numeric components of an upstream version
var numberRegex = regexp.MustCompile(`\d+`)

// Version is a Debian version split into its three parts.
type Version struct {
	Epoch    int
	Upstream string
	Revision string
}

// ValidVersion reports whether s looks like a Debian version.
func ValidVersion(s string) bool {
	return versionRegex.MatchString(s)
}

// ParseVersion splits a Debian version string into epoch, upstream and revision.
// The revision is everything after the last hyphen, the epoch everything before the first colon.
func ParseVersion(s string) Version {
	v := Version{}
	s = strings.TrimSpace(s)

	if i := strings.IndexByte(s, ':'); i >= 0 {
		if epoch, err := strconv.Atoi(s[:i]); err == nil {
			v.Epoch = epoch
			s = s[i+1:]
		}
	}

	if i := strings.LastIndexByte(s, '-'); i >= 0 {
		v.Revision = s[i+1:]
		s = s[:i]
	}

	v.Upstream = s
	return v
}

// String reassembles the version.
func (v Version) String() string {
	var b strings.Builder
	if v.Epoch > 0 {
		b.WriteString(strconv.Itoa(v.Epoch))
		b.WriteByte(':')
	}
	b.WriteString(v.Upstream)
	if v.Revision != "" {
		b.WriteByte('-')
		b.WriteString(v.Revision)
	}
	return b.String()
}

// CompareVersions compares two Debian version strings using dpkg ordering.
// Returns: -1 if v1 < v2, 0 if v1 == v2, 1 if v1 > v2
func CompareVersions(v1, v2 string) int {
	a := ParseVersion(v1)
	b := ParseVersion(v2)

	if a.Epoch != b.Epoch {
		if a.Epoch < b.Epoch {
			return -1
		}
		return 1
	}

	if cmp := compareFragment(a.Upstream, b.Upstream); cmp != 0 {
		return cmp
	}

	return compareFragment(a.Revision, b.Revision)
}

// order ranks a single non-digit character: '~' sorts before everything,
// the end of the string and digits next, then letters, then everything else.
func order(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return 0
	case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		return int(c)
	case c == '~':
		return -1
	case c != 0:
		return int(c) + 256
	default:
		return 0
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// at returns the byte at index i or 0 past the end
func at(s string, i int) byte {
	if i < len(s) {
		return s[i]
	}
	return 0
}

// compareFragment implements dpkg's verrevcmp over an upstream or revision string
func compareFragment(a, b string) int {
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		// Non-digit prefix, character by character
		for (i < len(a) && !isDigit(a[i])) || (j < len(b) && !isDigit(b[j])) {
			ac := order(at(a, i))
			bc := order(at(b, j))
			if ac != bc {
				return sign(ac - bc)
			}
			i++
			j++
		}

		// Numeric run, leading zeros ignored
		for i < len(a) && a[i] == '0' {
			i++
		}
		for j < len(b) && b[j] == '0' {
			j++
		}

		firstDiff := 0
		for i < len(a) && isDigit(a[i]) && j < len(b) && isDigit(b[j]) {
			if firstDiff == 0 {
				firstDiff = int(a[i]) - int(b[j])
			}
			i++
			j++
		}
		if i < len(a) && isDigit(a[i]) {
			return 1
		}
		if j < len(b) && isDigit(b[j]) {
			return -1
		}
		if firstDiff != 0 {
			return sign(firstDiff)
		}
	}
	return 0
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

// ClassifyChange reports which part of the version moved from installed to candidate.
func ClassifyChange(installed, candidate string) model.ChangeKind {
	a := ParseVersion(installed)
	b := ParseVersion(candidate)

	if a.Epoch != b.Epoch {
		return model.ChangeMajor
	}

	if a.Upstream == b.Upstream {
		if a.Revision != b.Revision {
			return model.ChangeRevision
		}
		return model.ChangeOther
	}

	an := numberRegex.FindAllString(a.Upstream, -1)
	bn := numberRegex.FindAllString(b.Upstream, -1)
	n := len(an)
	if len(bn) > n {
		n = len(bn)
	}

	for idx := 0; idx < n; idx++ {
		if component(an, idx) == component(bn, idx) {
			continue
		}
		switch idx {
		case 0:
			return model.ChangeMajor
		case 1:
			return model.ChangeMinor
		default:
			return model.ChangePatch
		}
	}

	return model.ChangeOther
}

// component returns the numeric value of parts[idx], or 0 when absent
func component(parts []string, idx int) int {
	if idx >= len(parts) {
		return 0
	}
	n, _ := strconv.Atoi(strings.TrimLeft(parts[idx], "0"))
	return n
}
