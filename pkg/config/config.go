package config

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"adjpeg/pkg/models"
)

// Verbosity controls how much progress output an analysis produces
type Verbosity int

const (
	Normal Verbosity = iota
	Quiet
	Debug
)

func (v Verbosity) String() string {
	switch v {
	case Quiet:
		return "quiet"
	case Debug:
		return "debug"
	default:
		return "normal"
	}
}

// RangeEnd selects how the end of a "start-end" coefficient range is read.
// Historical versions of the tool disagreed, so it is an explicit setting.
type RangeEnd int

const (
	// Exclusive reads "1-12" as indices 1..11
	Exclusive RangeEnd = iota
	// Inclusive reads "1-12" as indices 1..12
	Inclusive
)

func (e RangeEnd) String() string {
	if e == Inclusive {
		return "inclusive"
	}
	return "exclusive"
}

// ParseRangeEnd parses "exclusive" or "inclusive"
func ParseRangeEnd(s string) (RangeEnd, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exclusive", "":
		return Exclusive, nil
	case "inclusive":
		return Inclusive, nil
	default:
		return Exclusive, models.NewError(models.ConfigError, "invalid range end convention %q: expected 'exclusive' or 'inclusive'", s)
	}
}

// CoefficientRange is a span of zigzag coefficient indices as written by the
// user. Start < End always holds for a parsed range.
type CoefficientRange struct {
	Start int
	End   int
}

func (r CoefficientRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// ParseRange parses "start-end" text. Only the syntax and start < end are
// checked here; bounds depend on the end convention and are checked by
// Config.Validate.
func ParseRange(value string) (CoefficientRange, error) {
	parts := strings.Split(strings.TrimSpace(value), "-")
	if len(parts) != 2 {
		return CoefficientRange{}, models.NewError(models.ConfigError, "invalid range %q: expected format 'start-end'", value)
	}
	start, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	end, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return CoefficientRange{}, models.NewError(models.ConfigError, "invalid range %q: expected format 'start-end'", value)
	}
	if start >= end {
		return CoefficientRange{}, models.NewError(models.ConfigError, "start of range (%d) cannot be greater/equal to end (%d)", start, end)
	}
	return CoefficientRange{Start: start, End: end}, nil
}

// Config holds every setting of an analysis run. It is passed explicitly
// through all calls; nothing reads package-level state.
type Config struct {
	Verbosity Verbosity

	Range    CoefficientRange
	RangeEnd RangeEnd

	// MaxCandidateStep is the largest primary quantization step searched
	MaxCandidateStep int
	// SymmetricRange is R, the histogram covers [-R, R]
	SymmetricRange int
	// UseMixture compares against 0.5*simulated + 0.5*single-compressed
	UseMixture bool

	// BorderCrop pixels are removed on each side before the estimator's
	// re-encoding; ShiftPixels is the cyclic shift used for the calculator's
	// reference distribution
	BorderCrop  int
	ShiftPixels int

	Workers int
	TempDir string

	OutputQuality int
}

// Default returns the default analysis configuration
func Default() Config {
	return Config{
		Verbosity:        Normal,
		Range:            CoefficientRange{Start: 1, End: 12},
		RangeEnd:         Exclusive,
		MaxCandidateStep: 100,
		SymmetricRange:   1024,
		UseMixture:       true,
		BorderCrop:       4,
		ShiftPixels:      1,
		Workers:          runtime.GOMAXPROCS(0),
		OutputQuality:    90,
	}
}

// Indices returns the zigzag indices selected by the range under the
// configured end convention
func (c Config) Indices() []int {
	end := c.Range.End
	if c.RangeEnd == Inclusive {
		end++
	}
	return lo.RangeFrom(c.Range.Start, end-c.Range.Start)
}

// Validate checks the configuration for consistency
func (c Config) Validate() error {
	if c.Range.Start >= c.Range.End {
		return models.NewError(models.ConfigError, "start of range (%d) cannot be greater/equal to end (%d)", c.Range.Start, c.Range.End)
	}
	maxEnd := 64
	if c.RangeEnd == Inclusive {
		maxEnd = 63
	}
	if c.Range.Start < 0 || c.Range.End > maxEnd {
		return models.NewError(models.ConfigError, "range %s outside coefficients 0-63 (%s end)", c.Range, c.RangeEnd)
	}
	if c.MaxCandidateStep < 1 {
		return models.NewError(models.ConfigError, "max candidate step must be positive, got %d", c.MaxCandidateStep)
	}
	if c.SymmetricRange < 1 {
		return models.NewError(models.ConfigError, "symmetric range must be positive, got %d", c.SymmetricRange)
	}
	if c.BorderCrop < 0 || c.ShiftPixels < 0 {
		return models.NewError(models.ConfigError, "border crop and shift must not be negative")
	}
	if c.OutputQuality < 1 || c.OutputQuality > 100 {
		return models.NewError(models.ConfigError, "output quality must be within 1-100, got %d", c.OutputQuality)
	}
	return nil
}

// WorkerCount returns the effective parallelism
func (c Config) WorkerCount() int {
	if c.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return c.Workers
}
