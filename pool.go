package mathmail

import "runtime"

// Worker sizing constants.
const (
	// MinWorkers ensures at least one render runs.
	MinWorkers = 1

	// MaxWorkers caps automatic sizing; each LaTeX render forks latex and
	// dvipng, each browser render opens a tab.
	MaxWorkers = 8
)

// ResolveWorkers determines how many expressions render at once.
// Priority: explicit workers > GOMAXPROCS (adjusted by automaxprocs in
// containers), clamped to [MinWorkers, MaxWorkers].
// Exported for use by servers and CLIs.
func ResolveWorkers(workers int) int {
	if workers > 0 {
		return workers
	}

	n := runtime.GOMAXPROCS(0)
	if n < MinWorkers {
		return MinWorkers
	}
	if n > MaxWorkers {
		return MaxWorkers
	}
	return n
}
