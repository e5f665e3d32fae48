package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  study_id  ", Value: "  s-1  "},
		StringField{Key: "ignored", Value: "   "},
		StringField{Key: "   ", Value: "empty key"},
	)

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}

	if fields[0].Key != "study_id" || fields[0].String != "s-1" {
		t.Fatalf("unexpected study field: %+v", fields[0])
	}

	empty := StringFields()
	if len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestWithFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	enriched := WithFields(logger, zap.String("foo", "bar"))
	enriched.Info("test log")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	if ctx["foo"] != "bar" {
		t.Fatalf("expected field to be bar, got %q", ctx["foo"])
	}

	enriched = WithFields(nil, zap.String("baz", "qux"))
	if enriched == nil {
		t.Fatalf("expected fallback logger when nil provided")
	}

	enriched.Info("another log")
}

func TestRankingFields(t *testing.T) {
	fields := RankingFields("studies", FieldParticipant, " p-1 ")
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}

	if fields[0].Key != FieldKind || fields[0].String != "studies" {
		t.Fatalf("unexpected kind field: %+v", fields[0])
	}

	if fields[1].Key != FieldParticipant || fields[1].String != "p-1" {
		t.Fatalf("unexpected participant field: %+v", fields[1])
	}

	if got := RankingFields("", FieldStudy, ""); len(got) != 0 {
		t.Fatalf("expected empty fields, got %d", len(got))
	}
}

func TestWithRanking(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithRanking(zap.New(core), "participants", FieldStudy, "s-9").Info("ranked")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	if ctx[FieldKind] != "participants" || ctx[FieldStudy] != "s-9" {
		t.Fatalf("unexpected context: %v", ctx)
	}

	WithRanking(nil, "participants", FieldStudy, "s-9").Info("another log")
}
