package campaigns

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Schedule restricts when a campaign may dial. It is stored as JSON.
//
// The window is [StartTime, EndTime) compared as zero-padded "HH:MM" strings
// in the schedule's timezone. Windows that span midnight (e.g. 22:00-06:00)
// are not supported and never match.
type Schedule struct {
	EnabledDays     []string `json:"enabledDays"`
	StartTime       string   `json:"startTime"`
	EndTime         string   `json:"endTime"`
	Timezone        string   `json:"timezone"`
	SelectedPhoneID string   `json:"selectedPhoneId,omitempty"`
}

var ErrInvalidTimezone = errors.New("campaigns: invalid schedule timezone")

// WindowCheck explains a schedule evaluation, for logging.
type WindowCheck struct {
	Allowed bool
	Weekday string
	Clock   string
	Reason  string
}

// Allows evaluates now against the schedule.
// An empty timezone is treated as UTC.
func (s Schedule) Allows(now time.Time) (WindowCheck, error) {
	loc := time.UTC
	if tz := strings.TrimSpace(s.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return WindowCheck{}, fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
		}
		loc = l
	}

	local := now.In(loc)
	wc := WindowCheck{
		Weekday: strings.ToLower(local.Weekday().String()),
		Clock:   local.Format("15:04"),
	}

	if !s.dayEnabled(wc.Weekday) {
		wc.Reason = "day_not_enabled"
		return wc, nil
	}
	if wc.Clock < s.StartTime || wc.Clock >= s.EndTime {
		wc.Reason = "outside_window"
		return wc, nil
	}
	wc.Allowed = true
	return wc, nil
}

func (s Schedule) dayEnabled(weekday string) bool {
	for _, d := range s.EnabledDays {
		if strings.EqualFold(strings.TrimSpace(d), weekday) {
			return true
		}
	}
	return false
}
