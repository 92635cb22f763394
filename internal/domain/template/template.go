// Package template provides the domain model for agent templates: reusable
// specialist prompts that are either global or owned by one organization.
package template

import (
	"fmt"
	"strings"
	"time"
)

const (
	// FallbackName is used when neither an override nor a task is given.
	FallbackName = "Special Agent"
	// DefaultCategory is assigned when no category is supplied.
	DefaultCategory = "General"
	// DefaultIcon is assigned when no icon is supplied.
	DefaultIcon = "🧠"
)

// Categories offered by the factory filter. "Alle" selects every template.
const (
	CategoryAll      = "Alle"
	CategoryLegal    = "Legal"
	CategoryMedicine = "Medizin"
	CategoryFinance  = "Finanzen"
)

// AgentTemplate is a reusable specialist prompt.
type AgentTemplate struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	SystemPrompt   string    `json:"system_prompt"`
	OrganizationID *string   `json:"organization_id"` // nil = visible to every tenant
	Category       string    `json:"category"`
	Icon           string    `json:"icon"`
	SearchKeywords []string  `json:"search_keywords"`
	CreatedAt      time.Time `json:"created_at"`
}

// Global reports whether the template has no owning organization.
func (t *AgentTemplate) Global() bool { return t.OrganizationID == nil }

// VisibleTo reports whether a caller in orgID may see the template.
// An empty orgID sees only global templates.
func (t *AgentTemplate) VisibleTo(orgID string) bool {
	return t.OrganizationID == nil || (orgID != "" && *t.OrganizationID == orgID)
}

// InCategory applies the factory filter: "Alle" matches everything and
// "Finanzen" also matches general-purpose templates.
func (t *AgentTemplate) InCategory(category string) bool {
	switch category {
	case "", CategoryAll:
		return true
	case CategoryFinance:
		return t.Category == CategoryFinance || t.Category == DefaultCategory
	default:
		return t.Category == category
	}
}

// Overrides adjusts the derived fields of a created template. Nil fields
// fall back to derived defaults.
type Overrides struct {
	Name           *string  `json:"name,omitempty"`
	Description    *string  `json:"description,omitempty"`
	SystemPrompt   *string  `json:"system_prompt,omitempty"`
	OrganizationID *string  `json:"organization_id,omitempty"`
	Category       *string  `json:"category,omitempty"`
	Icon           *string  `json:"icon,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
}

// Seed is the input of an idempotent registration.
type Seed struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	SystemPrompt   string   `json:"system_prompt"`
	OrganizationID *string  `json:"organization_id"`
	Category       string   `json:"category,omitempty"`
	Icon           string   `json:"icon,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
}

// Validate checks that a Seed carries the registration key.
func (s *Seed) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// Overrides converts the seed into create overrides.
func (s *Seed) Overrides() Overrides {
	o := Overrides{OrganizationID: s.OrganizationID, Keywords: s.Keywords}
	o.Name = &s.Name
	if s.Description != "" {
		o.Description = &s.Description
	}
	if s.SystemPrompt != "" {
		o.SystemPrompt = &s.SystemPrompt
	}
	if s.Category != "" {
		o.Category = &s.Category
	}
	if s.Icon != "" {
		o.Icon = &s.Icon
	}
	return o
}

// Build derives a new, unsaved template from a task description and overrides.
func Build(task string, o Overrides) AgentTemplate {
	task = strings.TrimSpace(task)

	t := AgentTemplate{
		Name:           firstNonBlank(o.Name, task, FallbackName),
		Description:    firstNonBlank(o.Description, DefaultDescription(task)),
		SystemPrompt:   firstNonBlank(o.SystemPrompt, DefaultSystemPrompt(task)),
		OrganizationID: o.OrganizationID,
		Category:       firstNonBlank(o.Category, DefaultCategory),
		Icon:           firstNonBlank(o.Icon, DefaultIcon),
	}

	if len(o.Keywords) > 0 {
		t.SearchKeywords = Dedupe(o.Keywords)
	} else {
		t.SearchKeywords = DeriveKeywords(task, t.Name, t.Description, t.Category)
	}
	return t
}

// DefaultDescription is the description used when none is supplied.
func DefaultDescription(task string) string {
	return fmt.Sprintf("Specialist agent for: %s", task)
}

// DefaultSystemPrompt is the prompt used when none is supplied.
func DefaultSystemPrompt(task string) string {
	return strings.Join([]string{
		"You are a specialist AI agent within Zasterix.",
		fmt.Sprintf("Primary task: %s.", task),
		"Work in a Swiss wealth engineering tone and focus on precision, compliance, and actionability.",
		"If data is missing, ask for it succinctly before proceeding.",
	}, "\n")
}

// firstNonBlank returns the trimmed override when set and non-blank, else the
// first non-blank fallback.
func firstNonBlank(override *string, fallbacks ...string) string {
	if override != nil {
		if v := strings.TrimSpace(*override); v != "" {
			return v
		}
	}
	for _, f := range fallbacks {
		if strings.TrimSpace(f) != "" {
			return f
		}
	}
	return ""
}
