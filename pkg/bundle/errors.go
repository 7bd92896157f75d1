package bundle

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

// Sentinel errors for bundling operations.
var (
	// ErrNoRoot indicates that no usable bundling root could be determined.
	ErrNoRoot = errors.New("no usable project root")
	// ErrSizeLimitExceeded indicates that the eligible files exceed the
	// configured size ceiling.
	ErrSizeLimitExceeded = errors.New("project size limit exceeded")
)

// SizeLimitError reports that the running total of eligible file sizes
// passed Limit. Observed is the total at the moment the walk stopped, not
// the size of the whole project.
type SizeLimitError struct {
	Limit    int64
	Observed int64
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("project is too large to bundle: eligible files exceed %s (stopped at %s); choose a smaller folder",
		humanize.Bytes(uint64(e.Limit)), humanize.Bytes(uint64(e.Observed)))
}

// Is makes errors.Is(err, ErrSizeLimitExceeded) succeed.
func (e *SizeLimitError) Is(target error) bool {
	return target == ErrSizeLimitExceeded
}

// IsSizeLimit reports whether err is, or wraps, a size limit failure.
func IsSizeLimit(err error) bool {
	return errors.Is(err, ErrSizeLimitExceeded)
}
