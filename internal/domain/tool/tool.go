// Package tool defines the tool capabilities a tool-action task can trigger:
// the Yuh deep-link connector, the fee calculator, and the mock asset lookup.
package tool

import (
	"fmt"
	"slices"
	"sort"
)

// ID names a registered tool capability.
type ID string

const (
	IDYuhConnector  ID = "yuh-connector"
	IDFeeCalculator ID = "fee-calculator"
)

// Action is a deep-link action understood by the Yuh connector.
type Action string

const (
	ActionConnect   Action = "connect"
	ActionTransfer  Action = "transfer"
	ActionPortfolio Action = "portfolio"
)

// ValidActions lists every action the connector accepts.
var ValidActions = []Action{ActionConnect, ActionTransfer, ActionPortfolio}

// Params carries the tool-specific fields of a tool-action task.
type Params struct {
	Action   Action
	Amount   *float64
	Currency string
}

// Capability declares the fields a tool requires.
type Capability struct {
	ID          ID
	Name        string
	Description string
	validate    func(Params) error
}

// Validate checks p against the capability's required fields.
func (c Capability) Validate(p Params) error {
	if c.validate == nil {
		return nil
	}
	return c.validate(p)
}

// Registry maps tool ids to capabilities.
type Registry struct {
	tools map[ID]Capability
}

// DefaultRegistry returns a registry holding the built-in capabilities.
func DefaultRegistry() *Registry {
	r := &Registry{tools: make(map[ID]Capability)}
	r.Register(Capability{
		ID:          IDYuhConnector,
		Name:        "Yuh Connector",
		Description: "Opens the Yuh app through a deep link.",
		validate:    validateConnector,
	})
	r.Register(Capability{
		ID:          IDFeeCalculator,
		Name:        "Fee Calculator",
		Description: "Compares the Yuh fee against a reference bank fee.",
	})
	return r
}

// Register adds or replaces a capability.
func (r *Registry) Register(c Capability) {
	r.tools[c.ID] = c
}

// Lookup returns the capability for id. ok is false for unregistered tools.
func (r *Registry) Lookup(id ID) (Capability, bool) {
	c, ok := r.tools[id]
	return c, ok
}

// IDs returns the registered tool ids in sorted order.
func (r *Registry) IDs() []ID {
	ids := make([]ID, 0, len(r.tools))
	for id := range r.tools {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func validateConnector(p Params) error {
	if p.Action == "" {
		return fmt.Errorf("%s requires an action", IDYuhConnector)
	}
	if !slices.Contains(ValidActions, p.Action) {
		return fmt.Errorf("%s: unknown action %q", IDYuhConnector, p.Action)
	}
	if p.Action == ActionTransfer && p.Amount != nil && *p.Amount < 0 {
		return fmt.Errorf("%s: transfer amount must not be negative", IDYuhConnector)
	}
	return nil
}
