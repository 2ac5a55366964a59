package triage

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTimestamp is returned for a missing or unparseable observation time.
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	// ErrInvalidTransition is returned when an action is not defined from the current status.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrIncidentClosed is returned for any action on a closed incident.
	ErrIncidentClosed = errors.New("incident is closed")
	// ErrUnknownCategory is returned when a stored category has no event type mapping.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrUnknownAction is returned for an action name outside the closed set.
	ErrUnknownAction = errors.New("unknown action")
)

// TransitionError describes a rejected status change in words an analyst can read.
type TransitionError struct {
	Action string
	From   string
	Kind   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s %s %s %s", e.Action, article(e.From), e.From, e.Kind)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

func article(word string) string {
	if word != "" && (word[0] == 'a' || word[0] == 'e' || word[0] == 'i' || word[0] == 'o' || word[0] == 'u') {
		return "an"
	}
	return "a"
}
