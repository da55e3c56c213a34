package stats

import (
	"sort"
	"time"

	"codemaster/internal/domain"
)

// DayLayout is the format of Session.Day.
const DayLayout = "2006-01-02"

// Summary aggregates a player's completed sessions.
type Summary struct {
	Average       float64 `json:"average"`
	Best          float64 `json:"best"`
	Streak        int     `json:"streak"`
	TotalSessions int     `json:"totalSessions"`
}

// DayAverage is the mean percentage of the sessions finished on one day.
type DayAverage struct {
	Day     string  `json:"day"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// DayOf returns the calendar day a session counts for: its stored Day, or its end time in loc.
func DayOf(s domain.Session, loc *time.Location) string {
	if s.Day != "" {
		return s.Day
	}
	if s.EndedAt == nil {
		return ""
	}
	return s.EndedAt.In(loc).Format(DayLayout)
}

// CurrentStreak counts the consecutive played days ending at the most recent one.
// It is 0 when the most recent day is older than yesterday.
func CurrentStreak(history []domain.Session, now time.Time, loc *time.Location) int {
	seen := map[string]struct{}{}
	var days []time.Time
	for _, s := range domain.Completed(history) {
		key := DayOf(s, loc)
		if _, ok := seen[key]; ok || key == "" {
			continue
		}
		d, err := time.ParseInLocation(DayLayout, key, time.UTC)
		if err != nil {
			continue
		}
		seen[key] = struct{}{}
		days = append(days, d)
	}
	if len(days) == 0 {
		return 0
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	streak := 1
	for i := 1; i < len(days); i++ {
		if daysBetween(days[i-1], days[i]) == 1 {
			streak++
		} else {
			streak = 1
		}
	}

	today, _ := time.ParseInLocation(DayLayout, now.In(loc).Format(DayLayout), time.UTC)
	if daysBetween(days[len(days)-1], today) > 1 {
		return 0
	}
	return streak
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// Summarize computes the profile aggregates over completed sessions.
func Summarize(history []domain.Session, now time.Time, loc *time.Location) Summary {
	completed := domain.Completed(history)
	if len(completed) == 0 {
		return Summary{}
	}
	var sum, best float64
	for _, s := range completed {
		sum += s.Percentage
		if s.Percentage > best {
			best = s.Percentage
		}
	}
	return Summary{
		Average:       sum / float64(len(completed)),
		Best:          best,
		Streak:        CurrentStreak(completed, now, loc),
		TotalSessions: len(completed),
	}
}

// DailyAverages returns one entry per day for the trailing window ending today,
// oldest first. Days without sessions have a zero count.
func DailyAverages(history []domain.Session, now time.Time, loc *time.Location, days int) []DayAverage {
	if days <= 0 {
		return []DayAverage{}
	}
	type acc struct {
		sum   float64
		count int
	}
	byDay := map[string]*acc{}
	for _, s := range domain.Completed(history) {
		key := DayOf(s, loc)
		a, ok := byDay[key]
		if !ok {
			a = &acc{}
			byDay[key] = a
		}
		a.sum += s.Percentage
		a.count++
	}

	today := now.In(loc)
	out := make([]DayAverage, 0, days)
	for i := days - 1; i >= 0; i-- {
		key := today.AddDate(0, 0, -i).Format(DayLayout)
		entry := DayAverage{Day: key}
		if a, ok := byDay[key]; ok {
			entry.Count = a.count
			entry.Average = a.sum / float64(a.count)
		}
		out = append(out, entry)
	}
	return out
}
