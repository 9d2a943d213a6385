package service

import (
	"strings"
	"time"

	"bikeservice/internal/config"
	"bikeservice/internal/domain"
)

var timeLayouts = []string{"15:04", "15:04:05"}

// ResolveSchedule combines a calendar date and a local time of day into an
// instant in loc. The date may carry a time part after 'T'; it is ignored.
func ResolveSchedule(date, clock string, loc *time.Location) (time.Time, error) {
	day, _, _ := strings.Cut(strings.TrimSpace(date), "T")
	clock = strings.TrimSpace(clock)

	for _, layout := range timeLayouts {
		t, err := time.ParseInLocation("2006-01-02 "+layout, day+" "+clock, loc)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, domain.Errorf(domain.ErrInvalidSchedule, "Enter Valid Date")
}

// SlotWindow is the closed range of scheduled instants that conflict with at.
type SlotWindow struct {
	From time.Time
	To   time.Time
}

// ConflictWindow returns [at-d, at] in literal mode and [at-d, at+d] in symmetric mode.
func ConflictWindow(at time.Time, cfg config.BookingConfig) SlotWindow {
	d := cfg.SlotDuration
	w := SlotWindow{From: at.Add(-d), To: at}
	if cfg.ConflictWindow == config.ConflictWindowSymmetric {
		w.To = at.Add(d)
	}
	return w
}

// Contains reports whether t lies in the window, bounds included.
func (w SlotWindow) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}
