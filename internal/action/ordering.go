package action

import "fmt"

// Mode selects how a plan is ordered.
type Mode string

const (
	// ModeIndex stable-sorts actions by their fixed priority.
	ModeIndex Mode = "index"
	// ModeDependency topologically sorts actions by declared constraints.
	ModeDependency Mode = "dependency"
)

// ParseMode converts a configuration value into a Mode. An empty value
// selects ModeIndex.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", string(ModeIndex):
		return ModeIndex, nil
	case string(ModeDependency):
		return ModeDependency, nil
	default:
		return "", fmt.Errorf("unknown order mode %q (want %q or %q)", s, ModeIndex, ModeDependency)
	}
}

// Ordering is the ordering data a descriptor carries for the active mode.
// It is either a FixedIndex or a Dependencies value.
type Ordering interface {
	isOrdering()
}

// FixedIndex is a priority used in index mode; lower runs first.
type FixedIndex int

func (FixedIndex) isOrdering() {}

// Dependencies holds the constraints used in dependency mode. Before lists
// actions this one must run ahead of; After lists actions that must run
// ahead of this one.
type Dependencies struct {
	Before []string
	After  []string
}

func (Dependencies) isOrdering() {}
