package a2a

// AgentCard describes an agent's capabilities per the A2A protocol.
type AgentCard struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	URL          string  `json:"url"`
	Version      string  `json:"version"`
	Skills       []Skill `json:"skills"`
	Capabilities struct {
		Streaming bool `json:"streaming"`
	} `json:"capabilities"`
}

// Skill describes a single capability of the agent.
type Skill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	InputModes  []string `json:"inputModes"`
	OutputModes []string `json:"outputModes"`
}

// TaskRequest represents an incoming A2A task request. Skill is the id of
// the specialist template to consult.
type TaskRequest struct {
	ID    string `json:"id"`
	Skill string `json:"skill"`
	Input struct {
		Context string `json:"context"`
	} `json:"input"`
}

// TaskResponse represents an A2A task response.
type TaskResponse struct {
	ID     string      `json:"id"`
	Status string      `json:"status"` // "completed", "rejected", "failed"
	Output *TaskOutput `json:"output,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// TaskOutput carries the consultation result.
type TaskOutput struct {
	AgentName string   `json:"agent_name"`
	Response  string   `json:"response,omitempty"`
	Warning   *string  `json:"warning,omitempty"`
	Reasons   []string `json:"reasons,omitempty"`
}
