package telephony

import (
	"encoding/json"
	"errors"
	"strings"

	"voiceagent-platform/internal/calls"
)

var ErrNotStatusEvent = errors.New("telephony: not a call status event")

// StatusEvent is the subset of the provider's server message used to move a
// call row forward. The provider posts {"message": {...}}.
type StatusEvent struct {
	Type            string   `json:"type"`
	Status          string   `json:"status"`
	EndedReason     string   `json:"endedReason"`
	DurationSeconds *float64 `json:"durationSeconds"`
	RecordingURL    string   `json:"recordingUrl"`
	Call            struct {
		ID string `json:"id"`
	} `json:"call"`
}

const (
	eventStatusUpdate     = "status-update"
	eventEndOfCallReport  = "end-of-call-report"
	providerStatusEnded   = "ended"
	providerStatusQueued  = "queued"
	providerStatusRinging = "ringing"
)

// ParseStatusEvent decodes a server message. Message types other than
// status updates and end-of-call reports return ErrNotStatusEvent.
func ParseStatusEvent(body []byte) (StatusEvent, error) {
	var env struct {
		Message StatusEvent `json:"message"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return StatusEvent{}, err
	}
	ev := env.Message
	switch ev.Type {
	case eventStatusUpdate, eventEndOfCallReport:
	default:
		return StatusEvent{}, ErrNotStatusEvent
	}
	if ev.Call.ID == "" {
		return StatusEvent{}, ErrMissingCallID
	}
	return ev, nil
}

// CallStatus maps the event onto the call lifecycle. ok is false when the
// event carries no status change.
func (e StatusEvent) CallStatus() (calls.CallStatus, bool) {
	if e.Type == eventEndOfCallReport || e.Status == providerStatusEnded {
		return endedStatus(e.EndedReason), true
	}
	switch e.Status {
	case providerStatusQueued:
		return calls.CallStatusQueued, true
	case providerStatusRinging:
		return calls.CallStatusRinging, true
	case "in-progress", "forwarding":
		return calls.CallStatusInProgress, true
	default:
		return "", false
	}
}

func endedStatus(reason string) calls.CallStatus {
	r := strings.ToLower(reason)
	switch {
	case strings.Contains(r, "did-not-answer"), strings.Contains(r, "no-answer"), strings.Contains(r, "voicemail"):
		return calls.CallStatusNoAnswer
	case strings.Contains(r, "busy"):
		return calls.CallStatusBusy
	case strings.Contains(r, "error"), strings.Contains(r, "failed"), strings.Contains(r, "fault"):
		return calls.CallStatusFailed
	case strings.Contains(r, "cancel"):
		return calls.CallStatusCanceled
	default:
		return calls.CallStatusCompleted
	}
}

// Update converts the event into a calls.StatusUpdate.
func (e StatusEvent) Update() calls.StatusUpdate {
	u := calls.StatusUpdate{RecordingURL: e.RecordingURL}
	if st, ok := e.CallStatus(); ok {
		u.Status = st
	}
	if e.DurationSeconds != nil && *e.DurationSeconds >= 0 {
		d := int(*e.DurationSeconds + 0.5)
		u.DurationSeconds = &d
	}
	return u
}
