package parser

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input    string
		layouts  []string
		expected time.Time
		wantErr  bool
	}{
		{"12/08/22", []string{layoutUSShortYear}, time.Date(2022, 12, 8, 0, 0, 0, 0, time.UTC), false},
		{"2024/01/15", []string{layoutSlashISO, layoutISO}, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), false},
		{"2024-01-15", []string{layoutSlashISO, layoutISO}, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), false},
		{" 1/5 ", []string{layoutMonthDay}, time.Date(0, 1, 5, 0, 0, 0, 0, time.UTC), false},
		{"13/45", []string{layoutMonthDay}, time.Time{}, true},
		{"", []string{layoutISO}, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseDate(tt.input, tt.layouts)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.expected) {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestWithYear(t *testing.T) {
	ref := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		month    time.Month
		day      int
		expected time.Time
	}{
		{"same month", time.January, 12, time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC)},
		{"statement end day", time.January, 31, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)},
		{"future date rolls back a year", time.December, 30, time.Date(2023, 12, 30, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := withYear(time.Date(0, tt.month, tt.day, 0, 0, 0, 0, time.UTC), ref)
			if !got.Equal(tt.expected) {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDateHintFromName(t *testing.T) {
	got, ok := DateHintFromName("Statements/Brokerage Statement_2024-01-31_088.pdf")
	if !ok {
		t.Fatal("expected a date hint")
	}
	if want := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if _, ok := DateHintFromName("statement.pdf"); ok {
		t.Error("expected no date hint")
	}
}

func TestContainsAny(t *testing.T) {
	tests := []struct {
		text    string
		needles []string
		want    bool
	}{
		{"Charles SCHWAB & Co", []string{"schwab"}, true},
		{"TD Ameritrade", []string{"Fidelity", "td ameritrade"}, true},
		{"anything", []string{""}, false},
		{"anything", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := containsAny(tt.text, tt.needles); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
