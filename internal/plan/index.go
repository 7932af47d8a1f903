package plan

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/cedarbackup/cback/internal/action"
)

type indexedEntry struct {
	index   int
	ordinal int
	desc    action.Descriptor
}

// buildIndexed stable-sorts the request by fixed index. Equal indexes keep
// request order, duplicates included.
func buildIndexed(names []string, reg *action.Registry, hooks *action.HookTable) []Step {
	entries := make([]indexedEntry, 0, len(names))
	for i, name := range names {
		d := mustLookup(reg, name)
		idx, ok := d.Ordering.(action.FixedIndex)
		if !ok {
			panic(fmt.Sprintf("plan: action %q has %T ordering in index mode", name, d.Ordering))
		}
		entries = append(entries, indexedEntry{index: int(idx), ordinal: i, desc: d})
	}

	slices.SortStableFunc(entries, func(a, b indexedEntry) int {
		if c := cmp.Compare(a.index, b.index); c != 0 {
			return c
		}
		return cmp.Compare(a.ordinal, b.ordinal)
	})

	steps := make([]Step, len(entries))
	for i, e := range entries {
		steps[i] = newStep(e.desc, hooks)
	}
	return steps
}
