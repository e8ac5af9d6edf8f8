package model

import (
	"testing"
	"time"
)

func float64p(v float64) *float64 { return &v }

func TestIsFreeOfCharge(t *testing.T) {
	tests := []struct {
		name  string
		class ArtistClass
		want  bool
	}{
		{"free flag set", ArtistClass{IsFree: true, Cost: float64p(10)}, true},
		{"nil cost", ArtistClass{IsFree: false, Cost: nil}, true},
		{"zero cost", ArtistClass{IsFree: false, Cost: float64p(0)}, true},
		{"paid", ArtistClass{IsFree: false, Cost: float64p(9.99)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.class.IsFreeOfCharge(); got != tt.want {
				t.Errorf("IsFreeOfCharge() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScheduleStatus(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	before := now.Add(-2 * time.Hour)
	after := now.Add(2 * time.Hour)

	tests := []struct {
		name  string
		start *time.Time
		end   *time.Time
		want  string
	}{
		{"no dates", nil, nil, ClassStatusUnknown},
		{"missing end", &before, nil, ClassStatusUnknown},
		{"future", &after, &after, ClassStatusScheduled},
		{"in window", &before, &after, ClassStatusOngoing},
		{"past", &before, &before, ClassStatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class := ArtistClass{StartDate: tt.start, EndDate: tt.end}
			if got := class.ScheduleStatus(now); got != tt.want {
				t.Errorf("ScheduleStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}
