package plan

import "time"

// DateLayout is the calendar date format used for every stored date.
const DateLayout = "2006-01-02"

// Weeks is the length of the program.
const Weeks = 12

// SessionsPerWeek is the number of training days per week.
const SessionsPerWeek = 3

var weekdayToDay = map[time.Weekday]string{
	time.Monday:    DayOne,
	time.Wednesday: DayTwo,
	time.Friday:    DayThree,
}

// ScheduledWorkout is one entry of the training calendar.
type ScheduledWorkout struct {
	Week  int    `json:"week"` // 1-based
	Date  string `json:"date"`
	DayID string `json:"dayId"`
}

// FormatDate renders t as YYYY-MM-DD in t's own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD date at midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DateLayout, s, loc)
}

// WeekStart returns midnight of the Monday of anchor's week. Sunday belongs
// to the week that started six days earlier.
func WeekStart(anchor time.Time) time.Time {
	y, m, d := anchor.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, anchor.Location())
	offset := (int(midnight.Weekday()) + 6) % 7
	return midnight.AddDate(0, 0, -offset)
}

// Schedule emits the full 12-week Monday/Wednesday/Friday calendar starting
// at the week containing anchor.
func Schedule(anchor time.Time) []ScheduledWorkout {
	monday := WeekStart(anchor)
	out := make([]ScheduledWorkout, 0, Weeks*SessionsPerWeek)
	for week := 0; week < Weeks; week++ {
		base := monday.AddDate(0, 0, week*7)
		for _, offset := range []int{0, 2, 4} {
			date := base.AddDate(0, 0, offset)
			out = append(out, ScheduledWorkout{
				Week:  week + 1,
				Date:  FormatDate(date),
				DayID: weekdayToDay[date.Weekday()],
			})
		}
	}
	return out
}

// DayForDate returns the training day scheduled on the given weekday, if any.
func DayForDate(t time.Time) (string, bool) {
	id, ok := weekdayToDay[t.Weekday()]
	return id, ok
}
