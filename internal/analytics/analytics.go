// Package analytics summarises the interaction log into a daily admin report.
package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"mindmate/internal/storage"
)

// DailyStats is the activity of one calendar day.
type DailyStats struct {
	Date          string              `json:"date"`
	TotalMessages int                 `json:"total_messages"`
	UniqueUsers   int                 `json:"unique_users"`
	Fallbacks     int                 `json:"fallbacks"`
	VoiceMessages int                 `json:"voice_messages"`
	UserStats     map[int64]UserStats `json:"user_stats"`
}

type UserStats struct {
	UserID        int64 `json:"user_id"`
	Messages      int   `json:"messages"`
	Fallbacks     int   `json:"fallbacks"`
	VoiceMessages int   `json:"voice_messages"`
}

// AnalyzeDailyLogs counts the events whose timestamp falls on targetDate in
// targetDate's location.
func AnalyzeDailyLogs(events []storage.Event, targetDate time.Time) *DailyStats {
	startOfDay, endOfDay := dayBounds(targetDate)

	stats := &DailyStats{
		Date:      startOfDay.Format("2006-01-02"),
		UserStats: make(map[int64]UserStats),
	}

	for _, event := range events {
		if event.Timestamp.Before(startOfDay) || !event.Timestamp.Before(endOfDay) {
			continue
		}
		if event.UserMessage == "" {
			continue
		}
		stats.TotalMessages++
		us := stats.UserStats[event.UserID]
		us.UserID = event.UserID
		us.Messages++
		if event.Fallback {
			stats.Fallbacks++
			us.Fallbacks++
		}
		if event.Voice {
			stats.VoiceMessages++
			us.VoiceMessages++
		}
		stats.UserStats[event.UserID] = us
	}

	stats.UniqueUsers = len(stats.UserStats)
	return stats
}

// GenerateReportSummary renders the stats as a short plain-text report.
func (ds *DailyStats) GenerateReportSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "MindMate activity for %s\n\n", ds.Date)
	fmt.Fprintf(&b, "Messages: %d\n", ds.TotalMessages)
	fmt.Fprintf(&b, "Unique users: %d\n", ds.UniqueUsers)
	fmt.Fprintf(&b, "Voice messages: %d\n", ds.VoiceMessages)
	fmt.Fprintf(&b, "Fallback replies: %d\n", ds.Fallbacks)

	if len(ds.UserStats) == 0 {
		return b.String()
	}

	ids := make([]int64, 0, len(ds.UserStats))
	for id := range ds.UserStats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	b.WriteString("\nPer user:\n")
	for _, id := range ids {
		us := ds.UserStats[id]
		fmt.Fprintf(&b, "- %d: %d messages", id, us.Messages)
		if us.VoiceMessages > 0 {
			fmt.Fprintf(&b, ", %d voice", us.VoiceMessages)
		}
		if us.Fallbacks > 0 {
			fmt.Fprintf(&b, ", %d fallbacks", us.Fallbacks)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func dayBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return start, start.AddDate(0, 0, 1)
}

// Report loads only day's events from the recorder and summarises them.
func Report(rec storage.Recorder, day time.Time) (*DailyStats, error) {
	events, err := rec.Between(dayBounds(day))
	if err != nil {
		return nil, fmt.Errorf("load interactions: %w", err)
	}
	return AnalyzeDailyLogs(events, day), nil
}
