package scanflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agroscan/agroscan/internal/utils"
	"github.com/agroscan/agroscan/pkg/regions"
)

var (
	// ErrValidation means the input was rejected before any request was made.
	ErrValidation = errors.New("invalid input")
	// ErrBusy means a discovery or submission is already in flight.
	ErrBusy = errors.New("another request is in flight")
	// ErrStale means the flow moved on while the request was running; its answer was dropped.
	ErrStale = errors.New("response is stale")
	// ErrNoSelection means there is nothing to submit.
	ErrNoSelection = errors.New("no scene or image selected")
)

const DefaultMaxCloud = 20

// Params are the scene search inputs.
type Params struct {
	Region   string
	Date     string // YYYY-MM-DD
	MaxCloud int    // percent, 0-100
}

// Validate checks every field and reports the first problem.
func (p Params) Validate() error {
	if strings.TrimSpace(p.Region) == "" {
		return fmt.Errorf("%w: region is required", ErrValidation)
	}
	if _, ok := regions.Lookup(p.Region); !ok {
		return fmt.Errorf("%w: unknown region %q", ErrValidation, p.Region)
	}
	if !utils.IsDate(p.Date) {
		return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrValidation, p.Date)
	}
	if p.MaxCloud < 0 || p.MaxCloud > 100 {
		return fmt.Errorf("%w: max cloud cover %d is outside 0-100", ErrValidation, p.MaxCloud)
	}
	return nil
}
