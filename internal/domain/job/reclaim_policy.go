package job

import "time"

// Bounds for the stale-processing reclaim pass. A window under a minute
// would race callbacks that are merely slow, and a zero attempt budget
// would error every reclaimed job on its first timeout.
const (
	MinReclaimWindow     = time.Minute
	DefaultReclaimWindow = 15 * time.Minute
	MinReclaimAttempts   = 1
)

// ReclaimSource identifies how the reclaim window was resolved.
type ReclaimSource string

const (
	// ReclaimSourceExplicit indicates the configured window was used as given.
	ReclaimSourceExplicit ReclaimSource = "explicit"
	// ReclaimSourceDefault indicates no window was configured.
	ReclaimSourceDefault ReclaimSource = "default"
	// ReclaimSourceClamped indicates the configured window was raised to the floor.
	ReclaimSourceClamped ReclaimSource = "clamped"
)

// ReclaimPolicy normalises the staleness window and attempt budget the reaper
// uses when reclaiming jobs stuck in processing. A job whose dispatch is older
// than Window is reclaimed: requeued while it has attempts left, errored once
// the budget is spent.
type ReclaimPolicy struct {
	window   time.Duration
	attempts int
	source   ReclaimSource
}

// NewReclaimPolicy resolves the configured window and attempt budget.
// Zero falls back to the default window; anything below the floor is clamped.
func NewReclaimPolicy(window time.Duration, attempts int) ReclaimPolicy {
	p := ReclaimPolicy{window: window, attempts: attempts, source: ReclaimSourceExplicit}
	switch {
	case window == 0:
		p.window = DefaultReclaimWindow
		p.source = ReclaimSourceDefault
	case window < MinReclaimWindow:
		p.window = MinReclaimWindow
		p.source = ReclaimSourceClamped
	}
	if p.attempts < MinReclaimAttempts {
		p.attempts = MinReclaimAttempts
	}
	return p
}

// Window returns the staleness window; processing jobs dispatched longer ago
// than this are considered abandoned.
func (p ReclaimPolicy) Window() time.Duration {
	return p.window
}

// AttemptBudget returns how many dispatch attempts a job gets before a
// reclaim errors it instead of requeueing.
func (p ReclaimPolicy) AttemptBudget() int {
	return p.attempts
}

// Source reports how the window was resolved.
func (p ReclaimPolicy) Source() ReclaimSource {
	return p.source
}

// UsedDefault reports whether the window fell back to the default.
func (p ReclaimPolicy) UsedDefault() bool {
	return p.source == ReclaimSourceDefault
}

// Clamped reports whether the configured window was below the supported floor.
func (p ReclaimPolicy) Clamped() bool {
	return p.source == ReclaimSourceClamped
}
