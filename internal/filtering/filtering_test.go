package filtering

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/study-matcher/internal/matching"
)

func studies() []*matching.Study {
	return []*matching.Study{
		{ID: "s1", Status: matching.StudyActive, ParticipantsNeeded: 10, ParticipantsCurrent: 2},
		{ID: "s2", Status: matching.StudyActive, ParticipantsNeeded: 5, ParticipantsCurrent: 5},
		{ID: "s3", Status: matching.StudyDraft, ParticipantsNeeded: 5},
		{ID: "s4", Status: matching.StudyActive, ParticipantsNeeded: 3, ParticipantsCurrent: 1},
		{ID: "s5", Status: matching.StudyActive, ParticipantsNeeded: 0},
	}
}

func lookup(ids ...string) HistoryLookup {
	return func(context.Context) ([]string, error) { return ids, nil }
}

func TestPoolExcludePreservesOrder(t *testing.T) {
	pool := NewPool(studies())
	removed := pool.Exclude([]string{"s4", "s1", "missing"})

	if want := []string{"s1", "s4"}; !reflect.DeepEqual(removed, want) {
		t.Fatalf("expected removed %v, got %v", want, removed)
	}
	if want := []string{"s2", "s3", "s5"}; !reflect.DeepEqual(pool.IDs(), want) {
		t.Fatalf("expected remaining %v, got %v", want, pool.IDs())
	}
}

func TestNewPoolDoesNotAliasInput(t *testing.T) {
	items := studies()
	pool := NewPool(items)
	pool.Exclude([]string{"s1"})

	if items[0].ID != "s1" {
		t.Fatalf("expected input slice to be untouched, got %s first", items[0].ID)
	}
}

func TestRunStudyFilters(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	steps := []Filter[*matching.Study]{
		NewActiveStatus(logger),
		NewAppliedHistory[*matching.Study](&AppliedHistoryDeps{Lookup: lookup("s4"), Logger: logger}),
		NewCapacity(logger),
	}

	pool, err := Run(context.Background(), logger, steps, NewPool(studies()))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if want := []string{"s1"}; !reflect.DeepEqual(pool.IDs(), want) {
		t.Fatalf("expected %v, got %v", want, pool.IDs())
	}

	entries := logs.FilterMessage("filter step").All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 step entries, got %d", len(entries))
	}

	want := []struct {
		name                   string
		initial, dropped, left int64
	}{
		{"active_status", 5, 1, 4},
		{"applied_history", 4, 1, 3},
		{"capacity", 3, 2, 1},
	}
	for i, w := range want {
		fields := entries[i].ContextMap()
		if fields["name"] != w.name {
			t.Fatalf("step %d: expected name %s, got %v", i, w.name, fields["name"])
		}
		if fields["initial"] != w.initial || fields["dropped"] != w.dropped || fields["left"] != w.left {
			t.Fatalf("step %s: unexpected counts %v", w.name, fields)
		}
	}
}

func TestRunSkipsDisabledFilters(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	steps := []Filter[*matching.Study]{NewCapacity(logger)}
	steps[0].Disable("testing")

	pool, err := Run(context.Background(), logger, steps, NewPool(studies()))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if pool.Len() != 5 {
		t.Fatalf("expected untouched pool, got %d candidates", pool.Len())
	}
	if logs.FilterMessage("filter disabled").Len() != 1 {
		t.Fatalf("expected disabled filter to be logged")
	}
}

func TestRunValidatesBeforeApplying(t *testing.T) {
	called := false
	steps := []Filter[*matching.Account]{
		NewParticipantRole(nil),
		NewAppliedHistory[*matching.Account](&AppliedHistoryDeps{
			Lookup: func(context.Context) ([]string, error) {
				called = true
				return nil, nil
			},
		}),
	}

	if _, err := Run(context.Background(), nil, steps, NewPool[*matching.Account](nil)); err == nil {
		t.Fatalf("expected validation error for missing logger")
	}
	if called {
		t.Fatalf("expected no filter to run when validation fails")
	}
}

func TestAppliedHistoryLookupError(t *testing.T) {
	lookupErr := errors.New("db down")
	steps := []Filter[*matching.Study]{
		NewAppliedHistory[*matching.Study](&AppliedHistoryDeps{
			Lookup: func(context.Context) ([]string, error) { return nil, lookupErr },
			Logger: zap.NewNop(),
		}),
	}

	_, err := Run(context.Background(), nil, steps, NewPool(studies()))
	if !errors.Is(err, lookupErr) {
		t.Fatalf("expected wrapped lookup error, got %v", err)
	}
}

func TestParticipantRoleFilter(t *testing.T) {
	accounts := []*matching.Account{
		{ID: "u1", Role: matching.RoleParticipant},
		{ID: "u2", Role: matching.RoleResearcher},
		{ID: "u3", Role: matching.RoleParticipant},
		{ID: "u4", Role: matching.RoleAdmin},
	}

	pool, err := Run(context.Background(), nil, []Filter[*matching.Account]{NewParticipantRole(nil)}, NewPool(accounts))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if want := []string{"u1", "u3"}; !reflect.DeepEqual(pool.IDs(), want) {
		t.Fatalf("expected %v, got %v", want, pool.IDs())
	}
}

func TestDescribe(t *testing.T) {
	history := NewAppliedHistory[*matching.Study](&AppliedHistoryDeps{Lookup: lookup("s1", "s2"), Logger: zap.NewNop()})
	steps := []Filter[*matching.Study]{history, NewCapacity(nil)}
	if _, err := Run(context.Background(), nil, steps, NewPool(studies())); err != nil {
		t.Fatalf("run: %v", err)
	}
	steps[1].Disable("not needed")

	statuses := Describe(steps)
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[0].Details["excluded"] != "2" {
		t.Fatalf("expected history to report 2 exclusions, got %v", statuses[0].Details)
	}
	if statuses[1].Enabled {
		t.Fatalf("expected capacity to be reported disabled")
	}
}
