package probe

import (
	"sort"
	"time"
)

// Outcome is the liveness decision for one channel, derived from all of its
// completed probe results in a batch.
type Outcome struct {
	Online       bool
	WorkingURL   string
	ResponseTime time.Duration
	ErrKind      Kind
	ErrReason    string
	// Promote is set when an alternate URL answered while the primary did
	// not: the working URL should become the channel's primary.
	Promote bool
}

// DeriveOutcome reduces a channel's completed probe results to its final
// liveness. The reduction is a pure function of the result set: feeding the
// same results in any order yields the same outcome, which is what makes
// applying results safe under unordered worker completion.
//
// Precedence: an available primary wins; otherwise the available alternate
// with the lowest source position wins and is promoted; otherwise the
// channel is offline with the primary's failure reason.
//
// Returns false when results is empty, so the channel keeps its prior state.
func DeriveOutcome(results []TaskResult) (Outcome, bool) {
	if len(results) == 0 {
		return Outcome{}, false
	}

	ordered := make([]TaskResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i].Task, ordered[j].Task
		if a.Role != b.Role {
			return a.Role == RolePrimary
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.URL < b.URL
	})

	for _, tr := range ordered {
		if tr.Task.Role != RolePrimary {
			break
		}
		if tr.Result.IsAvailable() {
			return Outcome{
				Online:       true,
				WorkingURL:   tr.Task.URL,
				ResponseTime: tr.Result.Latency(),
			}, true
		}
	}

	for _, tr := range ordered {
		if tr.Task.Role != RoleAlternate || !tr.Result.IsAvailable() {
			continue
		}
		return Outcome{
			Online:       true,
			WorkingURL:   tr.Task.URL,
			ResponseTime: tr.Result.Latency(),
			Promote:      true,
		}, true
	}

	// all completed checks failed: report the primary's reason when the
	// primary was checked, else the first failure in deterministic order
	failed := ordered[0]
	return Outcome{
		Online:    false,
		ErrKind:   failed.Result.Kind(),
		ErrReason: failed.Result.Reason(),
	}, true
}
