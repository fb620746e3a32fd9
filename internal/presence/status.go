package presence

import (
	"fmt"
	"time"
)

// Recency bands for the computed display state.
const (
	onlineWindow    = 2 * time.Minute
	minutesWindow   = time.Hour
	hoursWindow     = 24 * time.Hour
	yesterdayWindow = 48 * time.Hour
)

// activeRecentlyText is the deliberately vague fallback shown when the user
// has opted out of presence or has never been seen.
const activeRecentlyText = "Active recently"

// Indicator is the colored presence dot shown next to a user's name.
type Indicator struct {
	Color string `json:"color"`
	Text  string `json:"text"`
}

// Status is the display-ready presence state. Exactly one of Indicator and
// LastSeenText is meaningful: a live indicator takes display priority and
// suppresses the last-seen line.
type Status struct {
	Indicator    *Indicator `json:"indicator,omitempty"`
	LastSeenText string     `json:"lastSeenText,omitempty"`
}

// ComputeStatus converts heartbeat recency and the self-reported status into
// a display state. showStatus=false is a hard privacy override: it wins over
// every recency rule and always yields "Active recently".
func ComputeStatus(showStatus bool, lastSeen *time.Time, selfStatus string, now time.Time) Status {
	if !showStatus || lastSeen == nil {
		return Status{LastSeenText: activeRecentlyText}
	}

	age := now.Sub(*lastSeen)

	switch {
	case age < onlineWindow:
		if selfStatus == "away" {
			return Status{Indicator: &Indicator{Color: "yellow", Text: "Away"}}
		}
		return Status{Indicator: &Indicator{Color: "green", Text: "Online"}}

	case age < minutesWindow:
		return Status{LastSeenText: lastSeenAgo(int(age.Minutes()), "minute")}

	case age < hoursWindow:
		return Status{LastSeenText: lastSeenAgo(int(age.Hours()), "hour")}

	case age < yesterdayWindow:
		return Status{LastSeenText: "Last seen yesterday"}

	default:
		return Status{LastSeenText: "Last seen on " + lastSeen.Format("Jan 2, 2006")}
	}
}

func lastSeenAgo(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("Last seen 1 %s ago", unit)
	}
	return fmt.Sprintf("Last seen %d %ss ago", n, unit)
}
