package calls

import "testing"

func TestCallStatusValuesAreNonEmpty(t *testing.T) {
	statuses := []CallStatus{
		CallStatusQueued,
		CallStatusRinging,
		CallStatusInProgress,
		CallStatusCompleted,
		CallStatusFailed,
		CallStatusNoAnswer,
		CallStatusBusy,
		CallStatusCanceled,
	}
	for _, s := range statuses {
		if s == "" {
			t.Fatalf("expected non-empty status")
		}
	}
}

func TestCallStatus_Terminal(t *testing.T) {
	if CallStatusQueued.Terminal() || CallStatusRinging.Terminal() || CallStatusInProgress.Terminal() {
		t.Fatalf("expected in-flight statuses to be non-terminal")
	}
	if !CallStatusCompleted.Terminal() || !CallStatusNoAnswer.Terminal() {
		t.Fatalf("expected terminal")
	}
}

func TestCallStatus_Advances(t *testing.T) {
	cases := []struct {
		from, to CallStatus
		want     bool
	}{
		{CallStatusQueued, CallStatusRinging, true},
		{CallStatusRinging, CallStatusInProgress, true},
		{CallStatusQueued, CallStatusCompleted, true},
		{CallStatusInProgress, CallStatusBusy, true},
		{CallStatusInProgress, CallStatusQueued, false},
		{CallStatusInProgress, CallStatusRinging, false},
		{CallStatusRinging, CallStatusRinging, false},
		{CallStatusCompleted, CallStatusFailed, false},
		{CallStatusCompleted, CallStatusInProgress, false},
		{CallStatusQueued, "", false},
		{CallStatusQueued, "voicemail", false},
		{"", CallStatusQueued, true},
	}
	for _, tc := range cases {
		if got := tc.from.Advances(tc.to); got != tc.want {
			t.Fatalf("%q -> %q: got %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
