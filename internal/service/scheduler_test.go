package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGoldenDue(t *testing.T) {
	tests := []struct {
		name     string
		clock    string
		quietEnd string
		day      string
		lastDay  string
		want     bool
	}{
		{
			name:     "fires at the boundary",
			clock:    "08:00",
			quietEnd: "08:00",
			day:      "2026-08-29",
			lastDay:  "2026-08-28",
			want:     true,
		},
		{
			name:     "still fires when the tick lands past the boundary",
			clock:    "08:01",
			quietEnd: "08:00",
			day:      "2026-08-29",
			lastDay:  "2026-08-28",
			want:     true,
		},
		{
			name:     "not before quiet hours end",
			clock:    "07:59",
			quietEnd: "08:00",
			day:      "2026-08-29",
			lastDay:  "2026-08-28",
			want:     false,
		},
		{
			name:     "once per day",
			clock:    "09:00",
			quietEnd: "08:00",
			day:      "2026-08-29",
			lastDay:  "2026-08-29",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, goldenDue(tt.clock, tt.quietEnd, tt.day, tt.lastDay))
		})
	}
}

func TestQuietNoticeDue(t *testing.T) {
	tests := []struct {
		name       string
		clock      string
		quietStart string
		quietEnd   string
		day        string
		lastDay    string
		want       bool
	}{
		{
			name:       "fires at the boundary",
			clock:      "23:00",
			quietStart: "23:00",
			quietEnd:   "08:00",
			day:        "2026-08-29",
			lastDay:    "2026-08-28",
			want:       true,
		},
		{
			name:       "still fires when the tick lands past the boundary",
			clock:      "23:01",
			quietStart: "23:00",
			quietEnd:   "08:00",
			day:        "2026-08-29",
			lastDay:    "2026-08-28",
			want:       true,
		},
		{
			name:       "not before quiet hours start",
			clock:      "22:59",
			quietStart: "23:00",
			quietEnd:   "08:00",
			day:        "2026-08-29",
			lastDay:    "2026-08-28",
			want:       false,
		},
		{
			name:       "once per day",
			clock:      "23:30",
			quietStart: "23:00",
			quietEnd:   "08:00",
			day:        "2026-08-29",
			lastDay:    "2026-08-29",
			want:       false,
		},
		{
			name:       "equal bounds disable the window",
			clock:      "23:30",
			quietStart: "23:00",
			quietEnd:   "23:00",
			day:        "2026-08-29",
			lastDay:    "2026-08-28",
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, quietNoticeDue(tt.clock, tt.quietStart, tt.quietEnd, tt.day, tt.lastDay))
		})
	}
}
