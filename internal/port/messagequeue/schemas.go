package messagequeue

// AuditRecordedPayload is the schema for audit.recorded messages.
type AuditRecordedPayload struct {
	EntryID        string  `json:"entry_id"`
	UserID         string  `json:"user_id"`
	OrganizationID *string `json:"organization_id"`
	Type           string  `json:"type,omitempty"`
}

// ProgressCompletedPayload is the schema for progress.completed messages.
type ProgressCompletedPayload struct {
	UserID   string `json:"user_id"`
	StageID  string `json:"stage_id"`
	ModuleID string `json:"module_id"`
	TaskID   string `json:"task_id"`
}

// TemplateCreatedPayload is the schema for templates.created messages.
type TemplateCreatedPayload struct {
	TemplateID     string  `json:"template_id"`
	Name           string  `json:"name"`
	OrganizationID *string `json:"organization_id"`
}

// CoachAnalyzedPayload is the schema for coach.analyzed messages.
type CoachAnalyzedPayload struct {
	UserID    string  `json:"user_id"`
	ISIN      string  `json:"isin"`
	AssetName string  `json:"asset_name"`
	Amount    float64 `json:"amount"`
	Fee       float64 `json:"fee"`
}

func (p *AuditRecordedPayload) validate() error {
	return require("entry_id", p.EntryID, "user_id", p.UserID)
}

func (p *ProgressCompletedPayload) validate() error {
	return require("user_id", p.UserID, "stage_id", p.StageID, "module_id", p.ModuleID, "task_id", p.TaskID)
}

func (p *TemplateCreatedPayload) validate() error {
	return require("template_id", p.TemplateID, "name", p.Name)
}

func (p *CoachAnalyzedPayload) validate() error {
	return require("user_id", p.UserID)
}
