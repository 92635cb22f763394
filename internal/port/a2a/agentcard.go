package a2a

import "github.com/zasterix/zasterix/internal/domain/template"

// Version is published in the agent card.
const Version = "0.1.0"

// BuildAgentCard returns the AgentCard for the Zasterix service. Each global
// specialist template is published as one skill.
func BuildAgentCard(baseURL string, templates []template.AgentTemplate) AgentCard {
	card := AgentCard{
		Name:        "Zasterix",
		Description: "Swiss wealth engineering specialist agents",
		URL:         baseURL,
		Version:     Version,
		Skills:      make([]Skill, 0, len(templates)),
	}
	for i := range templates {
		t := &templates[i]
		if !t.Global() {
			continue
		}
		card.Skills = append(card.Skills, Skill{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			Tags:        append([]string{t.Category}, t.SearchKeywords...),
			InputModes:  []string{"text"},
			OutputModes: []string{"text"},
		})
	}
	return card
}
