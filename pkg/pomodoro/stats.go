package pomodoro

import "time"

// Stats aggregates completed sessions.
type Stats struct {
	TotalSessions  int       `json:"totalSessions"`
	WorkSessions   int       `json:"workSessions"`
	BreakSessions  int       `json:"breakSessions"`
	FocusMinutes   int       `json:"focusMinutes"`
	TodaySessions  int       `json:"todaySessions"`
	TodayDate      string    `json:"todayDate"`
	CurrentStreak  int       `json:"currentStreak"`
	LongestStreak  int       `json:"longestStreak"`
	LastActiveDate string    `json:"lastActiveDate"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

const dateLayout = "2006-01-02"

// Record folds a session into the aggregate. Streaks count consecutive
// calendar days (in the session's location) with at least one work session.
func (s *Stats) Record(session Session) {
	day := session.CompletedAt.Format(dateLayout)
	s.TotalSessions++
	if session.Type == PhaseWork {
		s.WorkSessions++
		s.FocusMinutes += int(session.Duration / time.Minute)
		s.trackStreak(session.CompletedAt)
	} else {
		s.BreakSessions++
	}
	if s.TodayDate != day {
		s.TodayDate = day
		s.TodaySessions = 0
	}
	s.TodaySessions++
	s.UpdatedAt = session.CompletedAt
}

// Today returns today's session count relative to now.
func (s Stats) Today(now time.Time) int {
	if s.TodayDate != now.Format(dateLayout) {
		return 0
	}
	return s.TodaySessions
}

func (s *Stats) trackStreak(at time.Time) {
	day := at.Format(dateLayout)
	switch s.LastActiveDate {
	case day:
		return
	case at.AddDate(0, 0, -1).Format(dateLayout):
		s.CurrentStreak++
	default:
		s.CurrentStreak = 1
	}
	s.LastActiveDate = day
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
}
