package model

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Run IDs sort by start time: run_<unix seconds>_<8 hex>.
var runIDRegex = regexp.MustCompile(`^run_([0-9]{10})_[0-9a-f]{8}$`)

func NewRunID(now time.Time) (string, error) {
	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return fmt.Sprintf("run_%010d_%s", now.Unix(), hex.EncodeToString(randomBytes)), nil
}

func ValidateRunID(id string) bool {
	return runIDRegex.MatchString(id)
}

// RunIDTime returns the start time encoded in id.
func RunIDTime(id string) (time.Time, error) {
	match := runIDRegex.FindStringSubmatch(id)
	if match == nil {
		return time.Time{}, fmt.Errorf("invalid run ID format: %s", id)
	}
	ts, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp from run ID %s: %w", id, err)
	}
	return time.Unix(ts, 0), nil
}
