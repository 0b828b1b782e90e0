package compose

import "github.com/p-n-ai/pai-quiz/internal/curriculum"

// EventKind classifies controller notifications.
type EventKind int

const (
	EventListLoaded EventKind = iota
	EventFetchFailed
	EventDuplicateOutcomes
)

func (k EventKind) String() string {
	switch k {
	case EventListLoaded:
		return "list_loaded"
	case EventFetchFailed:
		return "fetch_failed"
	case EventDuplicateOutcomes:
		return "duplicate_outcomes"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is published when a fetch settles on the current selection. Fetch
// failures and duplicate outcomes are non-fatal notices for the user.
type Event struct {
	Kind       EventKind        `json:"kind"`
	Level      curriculum.Level `json:"level"`
	Count      int              `json:"count,omitempty"`
	Message    string           `json:"message,omitempty"`
	Duplicates []string         `json:"duplicates,omitempty"`
	Err        error            `json:"-"`
}
