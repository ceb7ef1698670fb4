package sandbox

import "time"

// Tier names used for metrics and error phases.
const (
	TierRequest = "request"
	TierHandler = "handler"
)

const (
	// DefaultMemoryBudget is used when Limits.MemoryBudget is zero.
	DefaultMemoryBudget uint = 1_000_000

	// DefaultMaxInputBytes is used when Limits.MaxInputBytes is zero.
	DefaultMaxInputBytes = 64 * 1024 * 1024
)

// Limits bounds one evaluation.
type Limits struct {
	// Tier labels the evaluation (TierRequest or TierHandler).
	Tier string

	// Timeout is the wall-clock limit. Zero means no limit beyond the caller's context.
	Timeout time.Duration

	// MemoryBudget caps interpreter allocations, counted in elements.
	MemoryBudget uint

	// MaxNodes caps the size of the compiled program. Zero means unlimited.
	MaxNodes uint

	// MaxInputBytes caps the serialized size of all arguments.
	MaxInputBytes int
}

// RequestLimits returns the tier for request-builder scripts.
func RequestLimits() Limits {
	return Limits{
		Tier:          TierRequest,
		Timeout:       10 * time.Second,
		MemoryBudget:  4_000_000,
		MaxNodes:      20_000,
		MaxInputBytes: DefaultMaxInputBytes,
	}
}

// HandlerLimits returns the tier for pagination handler and stop-condition
// scripts.
func HandlerLimits() Limits {
	return Limits{
		Tier:          TierHandler,
		Timeout:       3 * time.Second,
		MemoryBudget:  DefaultMemoryBudget,
		MaxNodes:      5_000,
		MaxInputBytes: DefaultMaxInputBytes,
	}
}

func (l Limits) memoryBudget() uint {
	if l.MemoryBudget == 0 {
		return DefaultMemoryBudget
	}
	return l.MemoryBudget
}

func (l Limits) maxInputBytes() int {
	if l.MaxInputBytes <= 0 {
		return DefaultMaxInputBytes
	}
	return l.MaxInputBytes
}
