package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldKind is the structured log field key for the ranking direction.
	FieldKind = "kind"
	// FieldParticipant is the structured log field key for a participant id.
	FieldParticipant = "participant_id"
	// FieldStudy is the structured log field key for a study id.
	FieldStudy = "study_id"
	// FieldUser is the structured log field key for a candidate account id.
	FieldUser = "user_id"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches the provided fields to the logger, defaulting to a
// no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// RankingFields describes one ranking pass: its kind and the id of the
// subject being matched under subjectKey.
func RankingFields(kind, subjectKey, subjectID string) []zap.Field {
	return StringFields(
		StringField{Key: FieldKind, Value: kind},
		StringField{Key: subjectKey, Value: subjectID},
	)
}

func WithRanking(logger *zap.Logger, kind, subjectKey, subjectID string) *zap.Logger {
	return WithFields(logger, RankingFields(kind, subjectKey, subjectID)...)
}
