// Package sqlstore is a record source backed by SQLite or PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/spigell/study-matcher/internal/dataset"
	"github.com/spigell/study-matcher/internal/matching"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	accountColumns = `u.id, u.name, u.email, u.role,
		p.user_id, p.date_of_birth, p.gender, p.location, p.bio, p.interests, p.availability`
	accountFrom = ` FROM users u LEFT JOIN participant_profiles p ON p.user_id = u.id`

	studyColumns = `s.id, s.title, s.description, s.institution, s.category, s.duration,
		s.compensation, s.location, s.status, s.participants_needed, s.participants_current,
		s.requirements, s.created_at, r.id, r.name, r.email`
	studyFrom = ` FROM studies s LEFT JOIN users r ON r.id = s.researcher_id`
)

type Store struct {
	db     *sql.DB
	driver string
	logger *zap.Logger
}

// Open connects to the database and checks that it is reachable.
func Open(ctx context.Context, driver, dsn string, logger *zap.Logger) (*Store, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to %s database: %w", driver, err)
	}

	return New(db, driver, logger), nil
}

func New(db *sql.DB, driver string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, driver: driver, logger: logger.With(zap.String("driver", driver))}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates missing tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	s.logger.Debug("schema is up to date", zap.Int("statements", len(schema)))
	return nil
}

// Import replaces the stored records with the content of ds in a single
// transaction.
func (s *Store) Import(ctx context.Context, ds *dataset.Dataset) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Warn("rolling back import failed", zap.Error(rbErr))
			}
		}
	}()

	for i := len(tables) - 1; i >= 0; i-- {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+tables[i]); err != nil {
			return fmt.Errorf("clear %s: %w", tables[i], err)
		}
	}

	for i, a := range ds.Accounts {
		if err = s.insertAccount(ctx, tx, i, a); err != nil {
			return fmt.Errorf("import account %q: %w", a.ID, err)
		}
	}
	for i, st := range ds.Studies {
		if err = s.insertStudy(ctx, tx, i, st); err != nil {
			return fmt.Errorf("import study %q: %w", st.ID, err)
		}
	}
	if err = s.insertLinks(ctx, tx, "study_applications", ds.Applications); err != nil {
		return err
	}
	if err = s.insertLinks(ctx, tx, "study_participations", ds.Participations); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	s.logger.Info("dataset imported",
		zap.Int("accounts", len(ds.Accounts)),
		zap.Int("studies", len(ds.Studies)),
		zap.Int("applications", len(ds.Applications)),
		zap.Int("participations", len(ds.Participations)),
	)
	return nil
}

func (s *Store) insertAccount(ctx context.Context, tx *sql.Tx, position int, a *matching.Account) error {
	_, err := tx.ExecContext(ctx, s.rebind(
		`INSERT INTO users (id, position, name, email, role) VALUES (?, ?, ?, ?, ?)`),
		a.ID, position, a.Name, a.Email, string(a.Role),
	)
	if err != nil || a.Profile == nil {
		return err
	}

	p := a.Profile
	interests, err := json.Marshal(nonNil(p.Interests))
	if err != nil {
		return err
	}
	availability, err := json.Marshal(nonNil(p.Availability))
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, s.rebind(
		`INSERT INTO participant_profiles (user_id, date_of_birth, gender, location, bio, interests, availability)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		a.ID, p.DateOfBirth, p.Gender, p.Location, p.Bio, string(interests), string(availability),
	)
	return err
}

func (s *Store) insertStudy(ctx context.Context, tx *sql.Tx, position int, st *matching.Study) error {
	requirements, err := matching.MarshalRequirements(st.Requirements)
	if err != nil {
		return err
	}

	var researcherID sql.NullString
	if st.Researcher != nil {
		researcherID = sql.NullString{String: st.Researcher.ID, Valid: true}
	}

	var createdAt string
	if !st.CreatedAt.IsZero() {
		createdAt = st.CreatedAt.UTC().Format(time.RFC3339Nano)
	}

	_, err = tx.ExecContext(ctx, s.rebind(
		`INSERT INTO studies (id, position, title, description, institution, category, duration,
			compensation, location, status, participants_needed, participants_current,
			requirements, researcher_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		st.ID, position, st.Title, st.Description, st.Institution, st.Category, st.Duration,
		st.Compensation, st.Location, string(st.Status), st.ParticipantsNeeded, st.ParticipantsCurrent,
		string(requirements), researcherID, createdAt,
	)
	return err
}

func (s *Store) insertLinks(ctx context.Context, tx *sql.Tx, table string, links []matching.Link) error {
	query := s.rebind(`INSERT INTO ` + table + ` (study_id, user_id, position, status) VALUES (?, ?, ?, ?)`)
	for i, l := range links {
		if _, err := tx.ExecContext(ctx, query, l.StudyID, l.UserID, i, l.Status); err != nil {
			return fmt.Errorf("import %s[%d]: %w", table, i, err)
		}
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (*matching.Account, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+accountColumns+accountFrom+` WHERE u.id = ?`), id)
	a, err := s.scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %q: %w", id, matching.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account %q: %w", id, err)
	}
	return a, nil
}

func (s *Store) GetStudy(ctx context.Context, id string) (*matching.Study, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+studyColumns+studyFrom+` WHERE s.id = ?`), id)
	st, err := s.scanStudy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("study %q: %w", id, matching.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get study %q: %w", id, err)
	}
	return st, nil
}

func (s *Store) ListActiveStudies(ctx context.Context) ([]*matching.Study, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT `+studyColumns+studyFrom+` WHERE s.status = ? ORDER BY s.position, s.id`),
		string(matching.StudyActive),
	)
	if err != nil {
		return nil, fmt.Errorf("list active studies: %w", err)
	}
	defer rows.Close()

	var studies []*matching.Study
	for rows.Next() {
		st, err := s.scanStudy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan study: %w", err)
		}
		studies = append(studies, st)
	}
	return studies, rows.Err()
}

func (s *Store) ListParticipants(ctx context.Context) ([]*matching.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT `+accountColumns+accountFrom+` WHERE u.role = ? ORDER BY u.position, u.id`),
		string(matching.RoleParticipant),
	)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var accounts []*matching.Account
	for rows.Next() {
		a, err := s.scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *Store) ListApplications(ctx context.Context, filter matching.LinkFilter) ([]matching.Link, error) {
	return s.listLinks(ctx, "study_applications", filter)
}

func (s *Store) ListParticipations(ctx context.Context, filter matching.LinkFilter) ([]matching.Link, error) {
	return s.listLinks(ctx, "study_participations", filter)
}

func (s *Store) listLinks(ctx context.Context, table string, filter matching.LinkFilter) ([]matching.Link, error) {
	var (
		column string
		value  string
	)
	switch {
	case filter.UserID != "":
		column, value = "user_id", filter.UserID
	case filter.StudyID != "":
		column, value = "study_id", filter.StudyID
	default:
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT study_id, user_id, status FROM `+table+` WHERE `+column+` = ? ORDER BY position`),
		value,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	var links []matching.Link
	for rows.Next() {
		var l matching.Link
		if err := rows.Scan(&l.StudyID, &l.UserID, &l.Status); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func (s *Store) CompletedStudyCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT COUNT(*) FROM study_participations WHERE user_id = ? AND status = ?`),
		userID, matching.ParticipationCompleted,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count completed studies of %q: %w", userID, err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanAccount(row scanner) (*matching.Account, error) {
	var (
		a                          matching.Account
		role                       string
		profileID                  sql.NullString
		dob, gender, location, bio sql.NullString
		interests, availability    sql.NullString
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &role,
		&profileID, &dob, &gender, &location, &bio, &interests, &availability); err != nil {
		return nil, err
	}
	a.Role = matching.Role(role)

	if profileID.Valid {
		a.Profile = &matching.Profile{
			DateOfBirth:  dob.String,
			Gender:       gender.String,
			Location:     location.String,
			Bio:          bio.String,
			Interests:    s.decodeList(a.ID, "interests", interests.String),
			Availability: s.decodeList(a.ID, "availability", availability.String),
		}
	}
	return &a, nil
}

func (s *Store) scanStudy(row scanner) (*matching.Study, error) {
	var (
		st                                  matching.Study
		status, requirements, createdAt     string
		researcherID, researcherName, email sql.NullString
	)
	if err := row.Scan(&st.ID, &st.Title, &st.Description, &st.Institution, &st.Category, &st.Duration,
		&st.Compensation, &st.Location, &status, &st.ParticipantsNeeded, &st.ParticipantsCurrent,
		&requirements, &createdAt, &researcherID, &researcherName, &email); err != nil {
		return nil, err
	}
	st.Status = matching.StudyStatus(status)

	reqs, err := matching.UnmarshalRequirements([]byte(requirements))
	if err != nil {
		s.logger.Warn("malformed requirements column, age and gender restrictions unreadable",
			zap.String("study_id", st.ID),
			zap.Error(err),
		)
		reqs = matching.UnreadableRequirements(err)
	}
	st.Requirements = reqs

	if createdAt != "" {
		if st.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			s.logger.Debug("malformed created_at column",
				zap.String("study_id", st.ID),
				zap.Error(err),
			)
		}
	}

	if researcherID.Valid {
		st.Researcher = &matching.Researcher{
			ID:    researcherID.String,
			Name:  researcherName.String,
			Email: email.String,
		}
	}
	return &st, nil
}

// decodeList reads a JSON array column. Malformed values yield an empty list.
func (s *Store) decodeList(userID, column, value string) []string {
	list := []string{}
	if value == "" {
		return list
	}
	if err := json.Unmarshal([]byte(value), &list); err != nil {
		s.logger.Warn("malformed list column",
			zap.String("user_id", userID),
			zap.String("column", column),
			zap.Error(err),
		)
		return []string{}
	}
	return list
}

// rebind rewrites ? placeholders into the $n form PostgreSQL expects.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
