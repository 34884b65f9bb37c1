package model

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Status string

const (
	StatusNotStarted Status = "not-started"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

type StageStatus string

const (
	StagePending    StageStatus = "pending"
	StageInProgress StageStatus = "in-progress"
	StageCompleted  StageStatus = "completed"
	StageError      StageStatus = "error"
)

func (s StageStatus) IsValid() bool {
	switch s {
	case StagePending, StageInProgress, StageCompleted, StageError:
		return true
	}
	return false
}

// Stage is one step of the agent pipeline attached to a ticket.
type Stage struct {
	ID      int         `json:"id"`
	Name    string      `json:"name"`
	Status  StageStatus `json:"status"`
	Message string      `json:"message,omitempty"`
}

// Ticket is a single unit of work moving through the pipeline. Tickets are
// created and mutated only by the backend; the client replaces whole records.
type Ticket struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Customer    string   `json:"customer"`
	Priority    Priority `json:"priority"`
	Status      Status   `json:"status"`
	CreatedAt   string   `json:"createdAt"`
	// UpdatedAt is optional; the backend may omit it. When present on both
	// the stored and incoming record it gates stale updates during merge.
	UpdatedAt        string  `json:"updatedAt,omitempty"`
	CurrentStage     int     `json:"currentStage"`
	Stages           []Stage `json:"stages"`
	WaitingForReview bool    `json:"waitingForReview,omitempty"`

	// Descriptive fields carried opaquely; the client displays them and
	// never interprets their content.
	AITNumber       string   `json:"aitNumber,omitempty"`
	DeliverableType string   `json:"deliverableType,omitempty"`
	Category        string   `json:"category,omitempty"`
	SLADeadline     string   `json:"slaDeadline,omitempty"`
	ARMID           string   `json:"armId,omitempty"`
	ApplicationName string   `json:"applicationName,omitempty"`
	LOBOwner        string   `json:"lobOwner,omitempty"`
	AITOwner        string   `json:"aitOwner,omitempty"`
	Contacts        []string `json:"contacts,omitempty"`
}

// ActiveStage returns the stage at CurrentStage, or nil when the index is
// out of range (a completed ticket may point one past the last stage).
func (t *Ticket) ActiveStage() *Stage {
	if t.CurrentStage < 0 || t.CurrentStage >= len(t.Stages) {
		return nil
	}
	return &t.Stages[t.CurrentStage]
}

// Validate checks the record invariants the pipeline guarantees: a strictly
// sequential pipeline has at most one in-progress stage, a completed ticket
// has only completed stages, and a review pause only happens mid-flight.
func (t *Ticket) Validate() error {
	if t.ID == "" {
		return errEmptyID
	}
	if !t.Status.IsValid() {
		return &InvalidFieldError{Field: "status", Value: string(t.Status)}
	}
	if t.Priority != "" && !t.Priority.IsValid() {
		return &InvalidFieldError{Field: "priority", Value: string(t.Priority)}
	}
	if t.CurrentStage < 0 || t.CurrentStage > len(t.Stages) {
		return &InvalidFieldError{Field: "currentStage", Value: ""}
	}
	// One past the last stage is the completion position; only a completed
	// ticket may point there.
	if len(t.Stages) > 0 && t.CurrentStage == len(t.Stages) && t.Status != StatusCompleted {
		return errStageOverrun
	}
	inProgress := 0
	for i := range t.Stages {
		st := &t.Stages[i]
		if !st.Status.IsValid() {
			return &InvalidFieldError{Field: "stages.status", Value: string(st.Status)}
		}
		if st.Status == StageInProgress {
			inProgress++
		}
		if t.Status == StatusCompleted && st.Status != StageCompleted {
			return errIncompleteStages
		}
	}
	if inProgress > 1 {
		return errParallelStages
	}
	if t.WaitingForReview {
		if t.Status != StatusInProgress {
			return errReviewNotInProgress
		}
		if st := t.ActiveStage(); st != nil && st.Status == StageCompleted {
			return errReviewStageDone
		}
	}
	return nil
}
