package model

import (
	"testing"
	"time"
)

func TestNewRunID(t *testing.T) {
	now := time.Unix(1771722000, 0)
	id, err := NewRunID(now)
	if err != nil {
		t.Fatalf("NewRunID returned error: %v", err)
	}
	if !ValidateRunID(id) {
		t.Errorf("generated ID %q does not match format", id)
	}
	if id[:15] != "run_1771722000_" {
		t.Errorf("unexpected prefix in %q", id)
	}

	ts, err := RunIDTime(id)
	if err != nil {
		t.Fatalf("RunIDTime: %v", err)
	}
	if !ts.Equal(now) {
		t.Errorf("RunIDTime = %v, want %v", ts, now)
	}
}

func TestNewRunID_Uniqueness(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := NewRunID(now)
		if err != nil {
			t.Fatalf("NewRunID returned error: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}

func TestValidateRunID(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		valid bool
	}{
		{"valid", "run_1771722000_a3f2b7c1", true},
		{"wrong prefix", "cmd_1771722000_a3f2b7c1", false},
		{"short timestamp", "run_177172200_a3f2b7c1", false},
		{"uppercase hex", "run_1771722000_A3F2B7C1", false},
		{"short hex", "run_1771722000_a3f2b7", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateRunID(tt.id); got != tt.valid {
				t.Errorf("ValidateRunID(%q) = %v, want %v", tt.id, got, tt.valid)
			}
		})
	}
}

func TestRunIDTime_Invalid(t *testing.T) {
	if _, err := RunIDTime("run_bad"); err == nil {
		t.Error("expected error for malformed ID")
	}
}
