package action

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop() Executor {
	return ExecutorFunc(func(context.Context, Invocation) error { return nil })
}

func intPtr(n int) *int { return &n }

func TestNewRegistry_IndexModeBuiltIns(t *testing.T) {
	reg, err := NewRegistry(ModeIndex, nil, nil)
	require.NoError(t, err)

	want := map[string]FixedIndex{
		Collect:  CollectIndex,
		Stage:    StageIndex,
		Store:    StoreIndex,
		Purge:    PurgeIndex,
		Rebuild:  ExclusiveIndex,
		Validate: ExclusiveIndex,
	}
	for name, idx := range want {
		d, ok := reg.Lookup(name)
		require.True(t, ok, name)
		assert.True(t, d.BuiltIn)
		assert.Equal(t, idx, d.Ordering, name)
	}
	assert.False(t, reg.Known(All))
}

func TestNewRegistry_DependencyModePinsPipeline(t *testing.T) {
	reg, err := NewRegistry(ModeDependency, nil, nil)
	require.NoError(t, err)

	d, _ := reg.Lookup(Collect)
	deps, ok := d.Ordering.(Dependencies)
	require.True(t, ok)
	assert.Equal(t, []string{Stage, Store, Purge}, deps.Before)

	d, _ = reg.Lookup(Store)
	assert.Equal(t, Dependencies{Before: []string{Purge}}, d.Ordering)

	d, _ = reg.Lookup(Purge)
	assert.Equal(t, Dependencies{}, d.Ordering)
}

func TestNewRegistry_MissingBuiltInExecutorIsUnavailable(t *testing.T) {
	reg, err := NewRegistry(ModeIndex, map[string]Executor{Collect: noop()}, nil)
	require.NoError(t, err)

	d, _ := reg.Lookup(Collect)
	assert.NoError(t, d.Executor.Execute(context.Background(), Invocation{}))

	d, _ = reg.Lookup(Stage)
	err = d.Executor.Execute(context.Background(), Invocation{})
	assert.True(t, errors.Is(err, ErrNoExecutor))
	assert.Contains(t, err.Error(), `"stage"`)
}

func TestNewRegistry_Extensions(t *testing.T) {
	exts := []Extension{
		{Name: "one", Executor: noop(), Index: intPtr(50), Depends: &Dependencies{After: []string{Collect}}},
		{Name: "two", Executor: noop(), Index: intPtr(350)},
	}

	reg, err := NewRegistry(ModeIndex, nil, exts)
	require.NoError(t, err)
	d, ok := reg.Lookup("one")
	require.True(t, ok)
	assert.Equal(t, FixedIndex(50), d.Ordering)
	assert.False(t, d.BuiltIn)
	descs := reg.Descriptors()
	assert.Equal(t, "one", descs[len(descs)-2].Name)
	assert.Equal(t, "two", descs[len(descs)-1].Name)

	reg, err = NewRegistry(ModeDependency, nil, exts)
	require.NoError(t, err)
	d, _ = reg.Lookup("one")
	assert.Equal(t, Dependencies{After: []string{Collect}}, d.Ordering)
	d, _ = reg.Lookup("two")
	assert.Equal(t, Dependencies{}, d.Ordering)

	descs = reg.Descriptors()
	require.Len(t, descs, 8)
	assert.Equal(t, Collect, descs[0].Name)
	assert.Equal(t, "two", descs[7].Name)
}

func TestNewRegistry_Rejects(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		exts []Extension
		want string
	}{
		{"unknown mode", Mode("bogus"), nil, "unknown order mode"},
		{"empty name", ModeIndex, []Extension{{Executor: noop(), Index: intPtr(1)}}, "name is required"},
		{"built-in name", ModeIndex, []Extension{{Name: Collect, Executor: noop(), Index: intPtr(1)}}, "reserved"},
		{"all", ModeIndex, []Extension{{Name: All, Executor: noop(), Index: intPtr(1)}}, "reserved"},
		{"duplicate", ModeIndex, []Extension{
			{Name: "one", Executor: noop(), Index: intPtr(1)},
			{Name: "one", Executor: noop(), Index: intPtr(2)},
		}, "more than once"},
		{"no executor", ModeIndex, []Extension{{Name: "one", Index: intPtr(1)}}, "executor is required"},
		{"no index", ModeIndex, []Extension{{Name: "one", Executor: noop()}}, "index is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.mode, nil, tt.exts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeIndex, m)

	m, err = ParseMode("dependency")
	require.NoError(t, err)
	assert.Equal(t, ModeDependency, m)

	_, err = ParseMode("topological")
	assert.Error(t, err)
}

func TestPipeline(t *testing.T) {
	assert.Equal(t, []string{Collect, Stage, Store, Purge}, Pipeline())
	assert.True(t, IsBuiltIn(Validate))
	assert.False(t, IsBuiltIn(All))
}
