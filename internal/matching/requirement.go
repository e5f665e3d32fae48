package matching

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

// Requirement kinds as they appear in the "type" discriminator of a record.
const (
	KindAge      = "age"
	KindGender   = "gender"
	KindInterest = "interest"
	KindLanguage = "language"
	KindStatus   = "status"
	KindDevice   = "device"
	KindFitness  = "fitness"
	KindBMI      = "bmi"
)

const (
	discriminatorKey      = "type"
	discriminatorAliasKey = "kind"

	defaultAgeMin = 0
	defaultAgeMax = 100
)

var errMissingKind = errors.New("requirement has no type")

// Requirement is a single declarative constraint attached to a study.
// The set of implementations is closed: one struct per known kind,
// UnknownRequirement for unrecognized kinds and InvalidRequirement for
// records that could not be decoded.
type Requirement interface {
	Kind() string
	Describe() string
	isRequirement()
}

type AgeRequirement struct {
	Min int `mapstructure:"min"`
	Max int `mapstructure:"max"`
}

func (AgeRequirement) Kind() string { return KindAge }
func (r AgeRequirement) Describe() string {
	return fmt.Sprintf("Age: %d-%d", r.Min, r.Max)
}
func (AgeRequirement) isRequirement() {}

// Contains reports whether age lies in the inclusive [Min, Max] range.
func (r AgeRequirement) Contains(age int) bool {
	return r.Min <= age && age <= r.Max
}

type GenderRequirement struct {
	Value string `mapstructure:"value"`
}

func (GenderRequirement) Kind() string       { return KindGender }
func (r GenderRequirement) Describe() string { return "Gender: " + r.Value }
func (GenderRequirement) isRequirement()     {}

type InterestRequirement struct {
	Value string `mapstructure:"value"`
}

func (InterestRequirement) Kind() string       { return KindInterest }
func (r InterestRequirement) Describe() string { return "Interest: " + r.Value }
func (InterestRequirement) isRequirement()     {}

type LanguageRequirement struct {
	Value string `mapstructure:"value"`
}

func (LanguageRequirement) Kind() string       { return KindLanguage }
func (r LanguageRequirement) Describe() string { return "Language: " + r.Value }
func (LanguageRequirement) isRequirement()     {}

type StatusRequirement struct {
	Value string `mapstructure:"value"`
}

func (StatusRequirement) Kind() string       { return KindStatus }
func (r StatusRequirement) Describe() string { return "Status: " + r.Value }
func (StatusRequirement) isRequirement()     {}

type DeviceRequirement struct {
	Value string `mapstructure:"value"`
}

func (DeviceRequirement) Kind() string       { return KindDevice }
func (r DeviceRequirement) Describe() string { return "Device: " + r.Value }
func (DeviceRequirement) isRequirement()     {}

type FitnessRequirement struct {
	Value string `mapstructure:"value"`
}

func (FitnessRequirement) Kind() string       { return KindFitness }
func (r FitnessRequirement) Describe() string { return "Fitness: " + r.Value }
func (FitnessRequirement) isRequirement()     {}

type BMIRequirement struct {
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`
}

func (BMIRequirement) Kind() string { return KindBMI }
func (r BMIRequirement) Describe() string {
	return "BMI: " + formatNumber(r.Min) + "-" + formatNumber(r.Max)
}
func (BMIRequirement) isRequirement() {}

// UnknownRequirement keeps a record whose kind is not recognized.
type UnknownRequirement struct {
	Type  string
	Value *string
}

func (r UnknownRequirement) Kind() string { return r.Type }
func (r UnknownRequirement) Describe() string {
	value := "N/A"
	if r.Value != nil {
		value = *r.Value
	}
	return r.Type + ": " + value
}
func (UnknownRequirement) isRequirement() {}

// InvalidRequirement is a record that could not be decoded. An empty Type
// means even the kind is unknown: the record is listed but never scored.
type InvalidRequirement struct {
	Type string
	Raw  map[string]any
	Err  error
}

func (r InvalidRequirement) Kind() string { return r.Type }
func (r InvalidRequirement) Describe() string {
	if r.Type == "" {
		return "invalid requirement"
	}
	return r.Type + ": invalid"
}
func (InvalidRequirement) isRequirement() {}

// UnreadableRequirements stands in for a requirement list that could not be
// read at all. It marks every restricting kind as invalid, so the scorer
// treats age and gender as not applicable instead of unrestricted.
func UnreadableRequirements(err error) []Requirement {
	return []Requirement{
		InvalidRequirement{Type: KindAge, Err: err},
		InvalidRequirement{Type: KindGender, Err: err},
	}
}

// DecodeRequirement turns a key-value record into a Requirement. It never
// fails: undecodable records become InvalidRequirement.
func DecodeRequirement(raw map[string]any) Requirement {
	kind, err := discriminator(raw)
	if err != nil {
		return InvalidRequirement{Raw: raw, Err: err}
	}

	var target Requirement
	switch kind {
	case KindAge:
		req := AgeRequirement{Min: defaultAgeMin, Max: defaultAgeMax}
		err = decodeFields(raw, &req)
		target = req
	case KindGender:
		var req GenderRequirement
		err = decodeFields(raw, &req)
		target = req
	case KindInterest:
		var req InterestRequirement
		err = decodeFields(raw, &req)
		target = req
	case KindLanguage:
		var req LanguageRequirement
		err = decodeFields(raw, &req)
		target = req
	case KindStatus:
		var req StatusRequirement
		err = decodeFields(raw, &req)
		target = req
	case KindDevice:
		var req DeviceRequirement
		err = decodeFields(raw, &req)
		target = req
	case KindFitness:
		var req FitnessRequirement
		err = decodeFields(raw, &req)
		target = req
	case KindBMI:
		var req BMIRequirement
		err = decodeFields(raw, &req)
		target = req
	default:
		return decodeUnknown(kind, raw)
	}

	if err != nil {
		return InvalidRequirement{Type: kind, Raw: raw, Err: err}
	}
	return target
}

// DecodeRequirements decodes an ordered list of records, keeping the order.
// An empty list yields nil.
func DecodeRequirements(raw []map[string]any) []Requirement {
	if len(raw) == 0 {
		return nil
	}

	reqs := make([]Requirement, 0, len(raw))
	for _, r := range raw {
		reqs = append(reqs, DecodeRequirement(r))
	}
	return reqs
}

// EncodeRequirement is the inverse of DecodeRequirement.
func EncodeRequirement(r Requirement) map[string]any {
	switch req := r.(type) {
	case AgeRequirement:
		return map[string]any{discriminatorKey: KindAge, "min": req.Min, "max": req.Max}
	case BMIRequirement:
		return map[string]any{discriminatorKey: KindBMI, "min": req.Min, "max": req.Max}
	case GenderRequirement:
		return valueRecord(KindGender, req.Value)
	case InterestRequirement:
		return valueRecord(KindInterest, req.Value)
	case LanguageRequirement:
		return valueRecord(KindLanguage, req.Value)
	case StatusRequirement:
		return valueRecord(KindStatus, req.Value)
	case DeviceRequirement:
		return valueRecord(KindDevice, req.Value)
	case FitnessRequirement:
		return valueRecord(KindFitness, req.Value)
	case UnknownRequirement:
		rec := map[string]any{discriminatorKey: req.Type}
		if req.Value != nil {
			rec["value"] = *req.Value
		}
		return rec
	case InvalidRequirement:
		return req.Raw
	default:
		return nil
	}
}

// MarshalRequirements encodes requirements as a JSON array of records.
func MarshalRequirements(reqs []Requirement) ([]byte, error) {
	records := make([]map[string]any, 0, len(reqs))
	for _, r := range reqs {
		if rec := EncodeRequirement(r); rec != nil {
			records = append(records, rec)
		}
	}
	return json.Marshal(records)
}

// UnmarshalRequirements decodes a JSON array of requirement records. Empty
// input yields no requirements.
func UnmarshalRequirements(data []byte) ([]Requirement, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode requirements: %w", err)
	}
	return DecodeRequirements(records), nil
}

func discriminator(raw map[string]any) (string, error) {
	value, ok := raw[discriminatorKey]
	if !ok {
		value, ok = raw[discriminatorAliasKey]
	}
	if !ok || value == nil {
		return "", errMissingKind
	}

	kind, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("requirement type must be a string, got %T", value)
	}
	if kind == "" {
		return "", errMissingKind
	}
	return kind, nil
}

func decodeFields(raw map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

func decodeUnknown(kind string, raw map[string]any) Requirement {
	req := UnknownRequirement{Type: kind}
	value, ok := raw["value"]
	if !ok || value == nil {
		return req
	}

	var field struct {
		Value string `mapstructure:"value"`
	}
	if err := decodeFields(map[string]any{"value": value}, &field); err != nil {
		field.Value = fmt.Sprint(value)
	}
	req.Value = &field.Value
	return req
}

func valueRecord(kind, value string) map[string]any {
	return map[string]any{discriminatorKey: kind, "value": value}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
