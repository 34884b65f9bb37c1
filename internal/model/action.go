package model

// Action is the single user action a ticket currently admits.
type Action string

const (
	ActionNone    Action = ""
	ActionStart   Action = "start"
	ActionResume  Action = "resume"
	ActionApprove Action = "approve"
)

// Label returns the display text for an action button.
func (a Action) Label() string {
	switch a {
	case ActionStart:
		return "Start Processing"
	case ActionResume:
		return "Resume Processing"
	case ActionApprove:
		return "Approve Review & Continue"
	}
	return ""
}

// NextAction derives the enabled action for a ticket. The branches are
// checked in priority order: a review pause co-occurs with in-progress and
// must win over the resume rule. Exactly one branch applies per ticket.
func NextAction(t Ticket) Action {
	switch {
	case t.WaitingForReview:
		return ActionApprove
	case t.Status == StatusNotStarted:
		return ActionStart
	case t.Status == StatusInProgress:
		return ActionResume
	default: // completed
		return ActionNone
	}
}

// StageView is the visual state of a single pipeline stage.
type StageView string

const (
	ViewPending   StageView = "pending"
	ViewActive    StageView = "active"
	ViewCompleted StageView = "completed"
	ViewError     StageView = "error"
)

// StageViews maps each stage to its visual state. It is computed on read;
// the stage list itself stays the durable source of stage status.
func StageViews(t Ticket) []StageView {
	views := make([]StageView, len(t.Stages))
	for i, st := range t.Stages {
		switch st.Status {
		case StageCompleted:
			views[i] = ViewCompleted
		case StageInProgress:
			views[i] = ViewActive
		case StageError:
			views[i] = ViewError
		default:
			views[i] = ViewPending
		}
	}
	return views
}
