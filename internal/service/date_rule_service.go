package service

import (
	"fmt"
	"strconv"
	"time"

	"github.com/noah-isme/wfh-scheduler/internal/models"
	appErrors "github.com/noah-isme/wfh-scheduler/pkg/errors"
)

const (
	msgStartWeekend   = "Start date cannot be a weekend."
	msgEndBeforeStart = "End date must be after the start date."
)

// DateWindow bounds the selectable range in calendar months around today.
type DateWindow struct {
	LookbackMonths  int
	LookaheadMonths int
}

// DateRuleService validates calendar dates against the WFH booking rules. It holds no mutable state.
type DateRuleService struct {
	window DateWindow
	now    func() time.Time
}

// DateRuleOption configures the service.
type DateRuleOption func(*DateRuleService)

// WithDateRuleClock overrides the clock used to derive today.
func WithDateRuleClock(now func() time.Time) DateRuleOption {
	return func(s *DateRuleService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewDateRuleService constructs the rule engine. Non-positive bounds fall back to 2 months back and 3 ahead.
func NewDateRuleService(window DateWindow, opts ...DateRuleOption) *DateRuleService {
	if window.LookbackMonths <= 0 {
		window.LookbackMonths = 2
	}
	if window.LookaheadMonths <= 0 {
		window.LookaheadMonths = 3
	}
	svc := &DateRuleService{window: window, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Today returns the current calendar date.
func (s *DateRuleService) Today() models.Date {
	return models.DateOf(s.now())
}

// ValidateStart rejects weekend start dates.
func (s *DateRuleService) ValidateStart(date models.Date) error {
	if date.IsWeekend() {
		return appErrors.Clone(appErrors.ErrWeekend, msgStartWeekend)
	}
	return nil
}

// ValidateEnd requires end to fall strictly after start.
func (s *DateRuleService) ValidateEnd(start, end models.Date) error {
	if !end.After(start) {
		return appErrors.Clone(appErrors.ErrEndBeforeStart, msgEndBeforeStart)
	}
	return nil
}

// Window returns the inclusive selectable bounds for today.
func (s *DateRuleService) Window(today models.Date) (models.Date, models.Date) {
	return today.AddMonths(-s.window.LookbackMonths), today.AddMonths(s.window.LookaheadMonths)
}

// IsWithinSelectableRange reports whether date lies inside the inclusive window.
func (s *DateRuleService) IsWithinSelectableRange(date, today models.Date) bool {
	earliest, latest := s.Window(today)
	return !date.Before(earliest) && !date.After(latest)
}

// CheckSelectable is IsWithinSelectableRange with a user-facing explanation.
func (s *DateRuleService) CheckSelectable(date, today models.Date) error {
	earliest, latest := s.Window(today)
	switch {
	case date.Before(earliest):
		return appErrors.Clone(appErrors.ErrOutOfRange,
			fmt.Sprintf("You cannot select a date before %s ago.", monthsPhrase(s.window.LookbackMonths)))
	case date.After(latest):
		return appErrors.Clone(appErrors.ErrOutOfRange,
			fmt.Sprintf("You cannot select a date more than %s ahead.", monthsPhrase(s.window.LookaheadMonths)))
	}
	return nil
}

var numberWords = []string{"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten", "eleven", "twelve"}

func numberWord(n int) string {
	if n >= 0 && n < len(numberWords) {
		return numberWords[n]
	}
	return strconv.Itoa(n)
}

func monthsPhrase(n int) string {
	if n == 1 {
		return "one month"
	}
	return numberWord(n) + " months"
}
