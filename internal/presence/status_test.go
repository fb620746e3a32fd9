package presence

import (
	"testing"
	"time"
)

func TestComputeStatus(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	seen := func(ago time.Duration) *time.Time {
		ts := now.Add(-ago)
		return &ts
	}

	tests := []struct {
		name          string
		showStatus    bool
		lastSeen      *time.Time
		selfStatus    string
		wantIndicator *Indicator
		wantText      string
	}{
		{
			name:       "privacy_override_wins_over_recency",
			showStatus: false,
			lastSeen:   seen(10 * time.Second),
			selfStatus: "online",
			wantText:   "Active recently",
		},
		{
			name:       "never_seen",
			showStatus: true,
			lastSeen:   nil,
			selfStatus: "online",
			wantText:   "Active recently",
		},
		{
			name:          "online_within_two_minutes",
			showStatus:    true,
			lastSeen:      seen(90 * time.Second),
			selfStatus:    "online",
			wantIndicator: &Indicator{Color: "green", Text: "Online"},
		},
		{
			name:          "away_overrides_online_dot",
			showStatus:    true,
			lastSeen:      seen(30 * time.Second),
			selfStatus:    "away",
			wantIndicator: &Indicator{Color: "yellow", Text: "Away"},
		},
		{
			name:       "minutes_band",
			showStatus: true,
			lastSeen:   seen(12 * time.Minute),
			selfStatus: "online",
			wantText:   "Last seen 12 minutes ago",
		},
		{
			name:       "hours_band",
			showStatus: true,
			lastSeen:   seen(5 * time.Hour),
			selfStatus: "online",
			wantText:   "Last seen 5 hours ago",
		},
		{
			name:       "one_hour_singular",
			showStatus: true,
			lastSeen:   seen(61 * time.Minute),
			selfStatus: "online",
			wantText:   "Last seen 1 hour ago",
		},
		{
			name:       "yesterday_band",
			showStatus: true,
			lastSeen:   seen(30 * time.Hour),
			selfStatus: "online",
			wantText:   "Last seen yesterday",
		},
		{
			name:       "older_than_two_days_shows_date",
			showStatus: true,
			lastSeen:   seen(72 * time.Hour),
			selfStatus: "online",
			wantText:   "Last seen on Mar 12, 2026",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeStatus(tt.showStatus, tt.lastSeen, tt.selfStatus, now)

			if tt.wantIndicator != nil {
				if got.Indicator == nil {
					t.Fatalf("ComputeStatus() indicator = nil, want %+v", tt.wantIndicator)
				}
				if *got.Indicator != *tt.wantIndicator {
					t.Fatalf("ComputeStatus() indicator = %+v, want %+v", got.Indicator, tt.wantIndicator)
				}
				if got.LastSeenText != "" {
					t.Fatalf("ComputeStatus() lastSeenText = %q, want empty alongside indicator", got.LastSeenText)
				}
				return
			}

			if got.Indicator != nil {
				t.Fatalf("ComputeStatus() indicator = %+v, want nil", got.Indicator)
			}
			if got.LastSeenText != tt.wantText {
				t.Fatalf("ComputeStatus() lastSeenText = %q, want %q", got.LastSeenText, tt.wantText)
			}
		})
	}
}
