package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Field keys shared by every component.
const (
	FieldProvider = "ai_provider"
	FieldModel    = "ai_model"

	// FieldBuild correlates every entry of one trajectory build.
	FieldBuild   = "build_id"
	FieldSession = "session_id"
	FieldStage   = "stage"
	FieldGap     = "gap"
	FieldCatalog = "catalog"
)

// StringField is one string-valued field. Blank values are dropped by StringFields.
type StringField struct {
	Key   string
	Value string
}

func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		key, value := strings.TrimSpace(f.Key), strings.TrimSpace(f.Value)
		if key == "" || value == "" {
			continue
		}
		result = append(result, zap.String(key, value))
	}
	return result
}

// WithFields attaches fields to log, defaulting to a no-op logger when log is nil.
func WithFields(log *zap.Logger, fields ...zap.Field) *zap.Logger {
	log = OrNop(log)
	if len(fields) == 0 {
		return log
	}
	return log.With(fields...)
}

// CommonFields returns the AI provider and model fields. Empty values are skipped.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

func WithCommonFields(log *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(log, CommonFields(provider, model)...)
}

// WithBuild attaches build and session correlation fields.
func WithBuild(log *zap.Logger, buildID, sessionID string) *zap.Logger {
	return WithFields(log, StringFields(
		StringField{Key: FieldBuild, Value: buildID},
		StringField{Key: FieldSession, Value: sessionID},
	)...)
}
