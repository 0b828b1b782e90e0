package workflow

// Stage is the view the user is on.
type Stage int

const (
	StageDashboard Stage = iota
	StageCompose
	StageReview
	StageEdit
)

func (s Stage) String() string {
	switch s {
	case StageDashboard:
		return "dashboard"
	case StageCompose:
		return "compose"
	case StageReview:
		return "review"
	case StageEdit:
		return "edit"
	default:
		return "unknown"
	}
}

// MarshalText encodes the stage by name.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Action is a workflow event that may move the stage.
type Action int

const (
	ActionStartCompose Action = iota
	ActionGenerationSucceeded
	ActionBackToCompose
	ActionRequestEdit
	ActionReturnToDashboard
)

func (a Action) String() string {
	switch a {
	case ActionStartCompose:
		return "startCompose"
	case ActionGenerationSucceeded:
		return "generationSucceeded"
	case ActionBackToCompose:
		return "backToCompose"
	case ActionRequestEdit:
		return "requestEdit"
	case ActionReturnToDashboard:
		return "returnToDashboard"
	default:
		return "unknown"
	}
}

// transitions is the complete table; anything not listed is rejected.
var transitions = map[Stage]map[Action]Stage{
	StageDashboard: {
		ActionStartCompose: StageCompose,
	},
	StageCompose: {
		ActionGenerationSucceeded: StageReview,
		ActionReturnToDashboard:   StageDashboard,
	},
	StageReview: {
		ActionBackToCompose:     StageCompose,
		ActionRequestEdit:       StageEdit,
		ActionReturnToDashboard: StageDashboard,
	},
	StageEdit: {
		ActionReturnToDashboard: StageDashboard,
	},
}

// Next returns the stage reached by applying a in s.
func Next(s Stage, a Action) (Stage, bool) {
	next, ok := transitions[s][a]
	return next, ok
}
