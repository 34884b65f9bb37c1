package model

import (
	"errors"
	"fmt"
)

var (
	errEmptyID             = errors.New("ticket id is empty")
	errParallelStages      = errors.New("more than one stage in-progress")
	errIncompleteStages    = errors.New("completed ticket has incomplete stages")
	errReviewNotInProgress = errors.New("waitingForReview on a ticket that is not in-progress")
	errReviewStageDone     = errors.New("waitingForReview but active stage already completed")
	errStageOverrun        = errors.New("stage index past the pipeline on an uncompleted ticket")
)

// InvalidFieldError reports a field that failed enum or range validation.
type InvalidFieldError struct {
	Field string
	Value string
}

func (e *InvalidFieldError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}
