package template

import (
	"fmt"
	"strings"
)

// Consultation is the outcome of consulting a specialist agent. When the
// context is blocked by the prompt guard, Response is empty and Warning is set.
type Consultation struct {
	TemplateID string   `json:"template_id"`
	AgentName  string   `json:"agent_name"`
	Context    string   `json:"context"`
	Response   string   `json:"response"`
	Blocked    bool     `json:"blocked"`
	Warning    *string  `json:"warning,omitempty"`
	Reasons    []string `json:"reasons,omitempty"`
}

// RenderConsultation builds the deterministic stand-in response for a
// consultation of t with the given context.
func RenderConsultation(t *AgentTemplate, context string) string {
	context = strings.TrimSpace(context)
	if context == "" {
		context = "No additional context provided."
	}
	return strings.Join([]string{
		fmt.Sprintf("%s consultation", t.Name),
		fmt.Sprintf("Context: %s", context),
		fmt.Sprintf("Guidance: %s reviewed the request against its mandate (%s) and recommends clarifying open facts before any decision.", t.Name, t.Description),
	}, "\n\n")
}
