package models

import "time"

// DateKey formats t as the canonical local-calendar-day string used to
// key per-day completion state.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Habit represents a recurring practice shared with a paired friend.
// Completions maps canonical date keys to whether the habit was done
// that day.
type Habit struct {
	ID            string          `json:"id"`
	OwnerID       string          `json:"owner_id"`
	Title         string          `json:"title"`
	Note          string          `json:"note,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	FriendID      string          `json:"friend_id"`
	ScheduledTime string          `json:"scheduled_time"` // HH:MM, local
	Icon          string          `json:"icon"`
	Color         string          `json:"color"`
	Weekdays      []int           `json:"weekdays"` // 0=Sunday .. 6=Saturday
	Motivation    string          `json:"motivation,omitempty"`
	RemindOnMiss  bool            `json:"remind_on_miss"`
	Completions   map[string]bool `json:"completions"`
}

// IsDoneToday reports whether today's completion entry is true.
// An absent entry counts as not done.
func (h *Habit) IsDoneToday() bool {
	return h.IsDoneOn(time.Now())
}

// IsDoneOn reports whether the habit was completed on the day of t.
func (h *Habit) IsDoneOn(t time.Time) bool {
	return h.Completions[DateKey(t)]
}

// ActiveOn reports whether weekday w (0=Sunday) is a scheduled day.
func (h *Habit) ActiveOn(w time.Weekday) bool {
	for _, d := range h.Weekdays {
		if d == int(w) {
			return true
		}
	}
	return false
}
