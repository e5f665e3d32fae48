package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/study-matcher/internal/dataset"
	"github.com/spigell/study-matcher/internal/matching"
	"github.com/spigell/study-matcher/internal/store/memory"
)

func fixture() *dataset.Dataset {
	researcher := &matching.Researcher{ID: "r1", Name: "Dr. Rivera", Email: "rivera@example.org"}
	return &dataset.Dataset{
		Accounts: []*matching.Account{
			{ID: "r1", Name: researcher.Name, Email: researcher.Email, Role: matching.RoleResearcher},
			{ID: "p2", Name: "Bo", Role: matching.RoleParticipant},
			{ID: "p1", Name: "Ada", Email: "ada@example.org", Role: matching.RoleParticipant, Profile: &matching.Profile{
				DateOfBirth:  "2000-01-01",
				Gender:       "Female",
				Location:     "Remote",
				Interests:    []string{"Psychology"},
				Availability: []string{"Weekdays", "Evenings"},
			}},
		},
		Studies: []*matching.Study{
			{
				ID:                 "s2",
				Title:              "Sleep",
				Category:           "Psychology",
				Location:           "Remote",
				Status:             matching.StudyActive,
				Compensation:       12.5,
				ParticipantsNeeded: 10,
				Requirements: []matching.Requirement{
					matching.AgeRequirement{Min: 18, Max: 30},
					matching.GenderRequirement{Value: "Any"},
				},
				Researcher: researcher,
				CreatedAt:  time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC),
			},
			{ID: "s1", Title: "Closed", Status: matching.StudyCompleted},
			{ID: "s3", Title: "Diet", Category: "Nutrition", Status: matching.StudyActive, ParticipantsNeeded: 2},
		},
		Applications: []matching.Link{
			{StudyID: "s3", UserID: "p2", Status: matching.ApplicationPending},
		},
		Participations: []matching.Link{
			{StudyID: "s1", UserID: "p1", Status: matching.ParticipationCompleted},
			{StudyID: "s3", UserID: "p1", Status: matching.ParticipationActive},
		},
	}
}

func openTestStore(t *testing.T, logger *zap.Logger) *Store {
	t.Helper()

	ctx := context.Background()
	s, err := Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "matcher.db"), logger)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := s.Import(ctx, fixture()); err != nil {
		t.Fatalf("import: %v", err)
	}
	return s
}

func TestImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, nil)

	p1, err := s.GetAccount(ctx, "p1")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	want := fixture().Accounts[2]
	if !reflect.DeepEqual(p1, want) {
		t.Fatalf("expected %+v, got %+v", want, p1)
	}

	p2, err := s.GetAccount(ctx, "p2")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if p2.Profile != nil {
		t.Fatalf("expected no profile for p2, got %+v", p2.Profile)
	}

	s2, err := s.GetStudy(ctx, "s2")
	if err != nil {
		t.Fatalf("get study: %v", err)
	}
	if !reflect.DeepEqual(s2, fixture().Studies[0]) {
		t.Fatalf("expected %+v, got %+v", fixture().Studies[0], s2)
	}
}

func TestNotFound(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, nil)

	if _, err := s.GetAccount(ctx, "ghost"); !errors.Is(err, matching.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.GetStudy(ctx, "ghost"); !errors.Is(err, matching.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMatchesMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, nil)
	mem := memory.New(fixture())

	gotStudies, err := s.ListActiveStudies(ctx)
	if err != nil {
		t.Fatalf("list studies: %v", err)
	}
	wantStudies, _ := mem.ListActiveStudies(ctx)
	if !reflect.DeepEqual(gotStudies, wantStudies) {
		t.Fatalf("expected studies %+v, got %+v", wantStudies, gotStudies)
	}

	gotAccounts, err := s.ListParticipants(ctx)
	if err != nil {
		t.Fatalf("list participants: %v", err)
	}
	wantAccounts, _ := mem.ListParticipants(ctx)
	if !reflect.DeepEqual(gotAccounts, wantAccounts) {
		t.Fatalf("expected accounts %+v, got %+v", wantAccounts, gotAccounts)
	}

	filters := []matching.LinkFilter{matching.ByUser("p1"), matching.ByStudy("s3"), {}}
	for _, f := range filters {
		gotApps, err := s.ListApplications(ctx, f)
		if err != nil {
			t.Fatalf("list applications: %v", err)
		}
		wantApps, _ := mem.ListApplications(ctx, f)
		if !reflect.DeepEqual(gotApps, wantApps) {
			t.Fatalf("%+v: expected applications %v, got %v", f, wantApps, gotApps)
		}

		gotParts, err := s.ListParticipations(ctx, f)
		if err != nil {
			t.Fatalf("list participations: %v", err)
		}
		wantParts, _ := mem.ListParticipations(ctx, f)
		if !reflect.DeepEqual(gotParts, wantParts) {
			t.Fatalf("%+v: expected participations %v, got %v", f, wantParts, gotParts)
		}
	}

	for _, user := range []string{"p1", "p2", "ghost"} {
		got, err := s.CompletedStudyCount(ctx, user)
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		want, _ := mem.CompletedStudyCount(ctx, user)
		if got != want {
			t.Fatalf("%s: expected %d completed, got %d", user, want, got)
		}
	}
}

func TestImportReplacesContent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, nil)

	smaller := &dataset.Dataset{Studies: []*matching.Study{{ID: "only", Status: matching.StudyActive}}}
	if err := s.Import(ctx, smaller); err != nil {
		t.Fatalf("reimport: %v", err)
	}

	studies, err := s.ListActiveStudies(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(studies) != 1 || studies[0].ID != "only" {
		t.Fatalf("expected only the new study, got %+v", studies)
	}
}

func TestImportRollsBackOnConflict(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, nil)

	broken := fixture()
	broken.Applications = append(broken.Applications, broken.Applications[0])
	if err := s.Import(ctx, broken); err == nil {
		t.Fatalf("expected duplicate application to fail the import")
	}

	accounts, err := s.ListParticipants(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected previous content to survive, got %d participants", len(accounts))
	}
}

func TestMalformedColumns(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.WarnLevel)
	s := openTestStore(t, zap.New(core))

	if _, err := s.db.ExecContext(ctx, `UPDATE studies SET requirements = '{oops' WHERE id = 's2'`); err != nil {
		t.Fatalf("corrupt requirements: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE participant_profiles SET interests = 'not json' WHERE user_id = 'p1'`); err != nil {
		t.Fatalf("corrupt interests: %v", err)
	}

	study, err := s.GetStudy(ctx, "s2")
	if err != nil {
		t.Fatalf("get study: %v", err)
	}
	wantKinds := []string{matching.KindAge, matching.KindGender}
	if len(study.Requirements) != len(wantKinds) {
		t.Fatalf("expected unreadable age and gender requirements, got %v", study.Requirements)
	}
	for i, kind := range wantKinds {
		inv, ok := study.Requirements[i].(matching.InvalidRequirement)
		if !ok || inv.Type != kind || inv.Err == nil {
			t.Fatalf("expected invalid %s requirement, got %#v", kind, study.Requirements[i])
		}
	}

	// A profile the restrictions could exclude is not awarded their points.
	scorer := matching.NewScorer(nil, matching.WithClock(func() time.Time {
		return time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	}))
	if got := scorer.Score(&matching.Profile{DateOfBirth: "1940-01-01", Gender: "Male"}, study); got != 0 {
		t.Fatalf("expected age and gender to be not applicable, got score %d", got)
	}

	account, err := s.GetAccount(ctx, "p1")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if len(account.Profile.Interests) != 0 {
		t.Fatalf("expected empty interests, got %v", account.Profile.Interests)
	}
	if account.Profile.Availability[1] != "Evenings" {
		t.Fatalf("expected availability to survive, got %v", account.Profile.Availability)
	}

	if logs.FilterMessage("malformed requirements column, age and gender restrictions unreadable").Len() != 1 {
		t.Fatalf("expected malformed requirements to be logged")
	}
	if logs.FilterMessage("malformed list column").Len() != 1 {
		t.Fatalf("expected malformed list to be logged")
	}
}

func TestRebind(t *testing.T) {
	pg := New(nil, DriverPostgres, nil)
	got := pg.rebind(`SELECT a FROM t WHERE b = ? AND c = ?`)
	if want := `SELECT a FROM t WHERE b = $1 AND c = $2`; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	lite := New(nil, DriverSQLite, nil)
	if got := lite.rebind(`x = ?`); got != `x = ?` {
		t.Fatalf("expected sqlite query unchanged, got %q", got)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mysql", "dsn", nil); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}
