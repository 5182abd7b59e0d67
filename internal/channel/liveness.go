package channel

import "time"

// Status is the verification state of a channel's stream URL.
type Status string

const (
	StatusUntested Status = "untested"
	StatusOnline   Status = "online"
	StatusOffline  Status = "offline"
)

// Liveness is the outcome of the most recent probe applied to a channel.
// It is an immutable value object; the constructors enforce that an online
// result always carries a working URL and an offline result never does.
type Liveness struct {
	status        Status
	workingURL    string
	responseTime  time.Duration
	lastCheckedAt time.Time
	lastError     string
}

// UntestedLiveness is the state of a channel that has never been probed.
func UntestedLiveness() Liveness {
	return Liveness{status: StatusUntested}
}

// OnlineLiveness records a successful probe against workingURL.
func OnlineLiveness(workingURL string, responseTime time.Duration, checkedAt time.Time) Liveness {
	return Liveness{
		status:        StatusOnline,
		workingURL:    workingURL,
		responseTime:  responseTime,
		lastCheckedAt: checkedAt,
	}
}

// OfflineLiveness records a failed probe with its reason.
func OfflineLiveness(reason string, checkedAt time.Time) Liveness {
	return Liveness{
		status:        StatusOffline,
		lastCheckedAt: checkedAt,
		lastError:     reason,
	}
}

// ReconstructLiveness rebuilds a Liveness from persisted state.
// Intended for repository adapters only.
func ReconstructLiveness(status Status, workingURL string, responseTime time.Duration, checkedAt time.Time, lastError string) Liveness {
	if status != StatusOnline {
		workingURL = ""
		responseTime = 0
	}
	return Liveness{
		status:        status,
		workingURL:    workingURL,
		responseTime:  responseTime,
		lastCheckedAt: checkedAt,
		lastError:     lastError,
	}
}

func (l Liveness) Status() Status              { return l.status }
func (l Liveness) WorkingURL() string          { return l.workingURL }
func (l Liveness) ResponseTime() time.Duration { return l.responseTime }
func (l Liveness) LastCheckedAt() time.Time    { return l.lastCheckedAt }
func (l Liveness) LastError() string           { return l.lastError }

// IsOnline reports whether the channel passed its most recent probe.
func (l Liveness) IsOnline() bool { return l.status == StatusOnline }
