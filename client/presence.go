package client

import (
	"fmt"
	"time"
)

// DisplayStatus derives the header string for a peer's presence record:
// "Online" while connected, a relative last-seen otherwise, plain
// "Offline" when nothing is known.
func DisplayStatus(p *Presence, now time.Time) string {
	if p == nil {
		return "Offline"
	}
	if p.IsOnline {
		return "Online"
	}
	if p.LastSeen != nil {
		return "Last seen " + relativeTime(now.Sub(*p.LastSeen))
	}
	return "Offline"
}

func relativeTime(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
