// Package dataset reads accounts, studies and their links from a single
// YAML, JSON or TOML file.
package dataset

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/spigell/study-matcher/internal/matching"
)

// Dataset is the decoded content of a dataset file. Slices keep file order.
type Dataset struct {
	Accounts       []*matching.Account
	Studies        []*matching.Study
	Applications   []matching.Link
	Participations []matching.Link
}

type record struct {
	Users          []userRecord    `mapstructure:"users"`
	Studies        []studyRecord   `mapstructure:"studies"`
	Applications   []matching.Link `mapstructure:"applications"`
	Participations []matching.Link `mapstructure:"participations"`
}

type userRecord struct {
	ID      string            `mapstructure:"id"`
	Name    string            `mapstructure:"name"`
	Email   string            `mapstructure:"email"`
	Role    string            `mapstructure:"role"`
	Profile *matching.Profile `mapstructure:"participant_profile"`
}

type studyRecord struct {
	ID                  string           `mapstructure:"id"`
	Title               string           `mapstructure:"title"`
	Description         string           `mapstructure:"description"`
	Institution         string           `mapstructure:"institution"`
	Category            string           `mapstructure:"category"`
	Duration            string           `mapstructure:"duration"`
	Compensation        float64          `mapstructure:"compensation"`
	Location            string           `mapstructure:"location"`
	Status              string           `mapstructure:"status"`
	ParticipantsNeeded  int              `mapstructure:"participants_needed"`
	ParticipantsCurrent int              `mapstructure:"participants_current"`
	ResearcherID        string           `mapstructure:"researcher_id"`
	Requirements        []map[string]any `mapstructure:"requirements"`
	CreatedAt           time.Time        `mapstructure:"created_at"`
}

// Load reads a dataset file. The format is chosen by the file extension.
func Load(path string) (*Dataset, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read dataset %q: %w", path, err)
	}

	ds, err := decode(v)
	if err != nil {
		return nil, fmt.Errorf("dataset %q: %w", filepath.Base(path), err)
	}
	return ds, nil
}

// Read reads a dataset in the given format ("yaml", "json" or "toml").
func Read(r io.Reader, format string) (*Dataset, error) {
	v := viper.New()
	v.SetConfigType(format)
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Dataset, error) {
	var raw record
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			dateToStringHook,
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
		WeaklyTypedInput: true,
		Result:           &raw,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	return build(&raw)
}

func build(raw *record) (*Dataset, error) {
	ds := &Dataset{}
	users := make(map[string]*matching.Account, len(raw.Users))

	for i, u := range raw.Users {
		id := ensureID(u.ID)
		if _, dup := users[id]; dup {
			return nil, fmt.Errorf("users[%d]: duplicate id %q", i, id)
		}

		role := matching.Role(strings.ToUpper(strings.TrimSpace(u.Role)))
		switch role {
		case "":
			role = matching.RoleParticipant
		case matching.RoleParticipant, matching.RoleResearcher, matching.RoleAdmin:
		default:
			return nil, fmt.Errorf("users[%d]: unknown role %q", i, u.Role)
		}

		account := &matching.Account{
			ID:      id,
			Name:    u.Name,
			Email:   u.Email,
			Role:    role,
			Profile: u.Profile,
		}
		users[id] = account
		ds.Accounts = append(ds.Accounts, account)
	}

	studies := make(map[string]struct{}, len(raw.Studies))
	for i, s := range raw.Studies {
		id := ensureID(s.ID)
		if _, dup := studies[id]; dup {
			return nil, fmt.Errorf("studies[%d]: duplicate id %q", i, id)
		}
		studies[id] = struct{}{}

		status := matching.StudyStatus(strings.ToUpper(strings.TrimSpace(s.Status)))
		if status == "" {
			status = matching.StudyActive
		}

		study := &matching.Study{
			ID:                  id,
			Title:               s.Title,
			Description:         s.Description,
			Institution:         s.Institution,
			Category:            s.Category,
			Duration:            s.Duration,
			Compensation:        s.Compensation,
			Location:            s.Location,
			Status:              status,
			ParticipantsNeeded:  s.ParticipantsNeeded,
			ParticipantsCurrent: s.ParticipantsCurrent,
			Requirements:        matching.DecodeRequirements(s.Requirements),
			CreatedAt:           s.CreatedAt,
		}

		if s.ResearcherID != "" {
			owner, ok := users[s.ResearcherID]
			if !ok {
				return nil, fmt.Errorf("studies[%d]: unknown researcher %q", i, s.ResearcherID)
			}
			study.Researcher = &matching.Researcher{ID: owner.ID, Name: owner.Name, Email: owner.Email}
		}

		ds.Studies = append(ds.Studies, study)
	}

	var err error
	if ds.Applications, err = links("applications", raw.Applications, matching.ApplicationPending, users, studies); err != nil {
		return nil, err
	}
	if ds.Participations, err = links("participations", raw.Participations, matching.ParticipationActive, users, studies); err != nil {
		return nil, err
	}

	return ds, nil
}

func links(section string, raw []matching.Link, defaultStatus string, users map[string]*matching.Account, studies map[string]struct{}) ([]matching.Link, error) {
	out := make([]matching.Link, 0, len(raw))
	for i, l := range raw {
		if _, ok := users[l.UserID]; !ok {
			return nil, fmt.Errorf("%s[%d]: unknown user %q", section, i, l.UserID)
		}
		if _, ok := studies[l.StudyID]; !ok {
			return nil, fmt.Errorf("%s[%d]: unknown study %q", section, i, l.StudyID)
		}

		l.Status = strings.ToUpper(strings.TrimSpace(l.Status))
		if l.Status == "" {
			l.Status = defaultStatus
		}
		out = append(out, l)
	}
	return out, nil
}

// CompletedStudies counts completed participations per user.
func (d *Dataset) CompletedStudies() map[string]int {
	counts := make(map[string]int)
	for _, p := range d.Participations {
		if p.Status == matching.ParticipationCompleted {
			counts[p.UserID]++
		}
	}
	return counts
}

// Validate reports records that break the enrollment invariant.
func (d *Dataset) Validate() error {
	var errs []error
	for _, s := range d.Studies {
		if s.ParticipantsNeeded < 0 || s.ParticipantsCurrent < 0 {
			errs = append(errs, fmt.Errorf("study %q: negative enrollment numbers", s.ID))
			continue
		}
		if s.ParticipantsCurrent > s.ParticipantsNeeded {
			errs = append(errs, fmt.Errorf("study %q: %d participants exceed capacity %d",
				s.ID, s.ParticipantsCurrent, s.ParticipantsNeeded))
		}
	}
	return errors.Join(errs...)
}

func ensureID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return uuid.NewString()
	}
	return id
}

var timeType = reflect.TypeOf(time.Time{})

// dateToStringHook keeps dates parsed by the file format as YYYY-MM-DD strings
// when the target field is a string.
func dateToStringHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from != timeType || to.Kind() != reflect.String {
		return data, nil
	}
	return data.(time.Time).Format(time.DateOnly), nil
}
