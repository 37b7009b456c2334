package apt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/obentoo/aptaudit/internal/common/system"
)

// Error variables for listing collection
var (
	// ErrListingUnreadable is returned when a listing file cannot be read
	ErrListingUnreadable = errors.New("package listing is unreadable")
	// ErrAptFailed is returned when apt could not produce a listing
	ErrAptFailed = errors.New("apt list failed")
)

// Collector loads installed and upgradable listings from files or from apt.
type Collector struct {
	exec system.Executor
}

// NewCollector creates a Collector running apt through exec.
func NewCollector(exec system.Executor) *Collector {
	return &Collector{exec: exec}
}

// Load returns the listing of the given kind.
// When path is non-empty the file is parsed; otherwise `apt list` is run.
func (c *Collector) Load(ctx context.Context, kind Kind, path string) (*ParseResult, error) {
	if path != "" {
		return LoadFile(path, kind)
	}

	flag := "--installed"
	if kind == KindUpgradable {
		flag = "--upgradable"
	}

	out, err := c.exec.Run(ctx, "apt", "list", flag)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAptFailed, err)
	}

	return ParseListing(strings.NewReader(out), kind)
}

// LoadFile parses a listing stored in a file.
func LoadFile(path string, kind Kind) (*ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrListingUnreadable, path, err)
	}
	defer f.Close()

	result, err := ParseListing(f, kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrListingUnreadable, path, err)
	}
	return result, nil
}
