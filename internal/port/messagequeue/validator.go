package messagequeue

import (
	"encoding/json"
	"fmt"
)

type payload interface {
	validate() error
}

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects pass validation
// (future-proof for new message types).
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	var target payload
	switch subject {
	case SubjectAuditRecorded:
		target = &AuditRecordedPayload{}
	case SubjectProgressCompleted:
		target = &ProgressCompletedPayload{}
	case SubjectTemplateCreated:
		target = &TemplateCreatedPayload{}
	case SubjectCoachAnalyzed:
		target = &CoachAnalyzedPayload{}
	default:
		return nil
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", subject, err)
	}
	if err := target.validate(); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", subject, err)
	}
	return nil
}

// require takes name/value pairs and reports the first empty value.
func require(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return fmt.Errorf("%s is required", pairs[i])
		}
	}
	return nil
}
