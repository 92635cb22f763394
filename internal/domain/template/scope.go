package template

// Scope selects which templates a list call returns.
type Scope struct {
	kind  scopeKind
	orgID string
}

type scopeKind int

const (
	scopeAll scopeKind = iota
	scopeGlobal
	scopeOrg
)

// AllScopes returns every template regardless of owner.
func AllScopes() Scope { return Scope{kind: scopeAll} }

// GlobalScope returns only templates without an organization.
func GlobalScope() Scope { return Scope{kind: scopeGlobal} }

// OrgScope returns global templates plus those owned by orgID. An empty orgID
// is the same as GlobalScope.
func OrgScope(orgID string) Scope {
	if orgID == "" {
		return GlobalScope()
	}
	return Scope{kind: scopeOrg, orgID: orgID}
}

// ParseScope maps the query-string form ("all", "global", or an organization
// id) to a Scope.
func ParseScope(s string) Scope {
	switch s {
	case "", "all":
		return AllScopes()
	case "global", "null":
		return GlobalScope()
	default:
		return OrgScope(s)
	}
}

// Within narrows s to what a caller in orgID may see. The all scope becomes
// OrgScope(orgID). It reports false when s names another organization.
func (s Scope) Within(orgID string) (Scope, bool) {
	switch s.kind {
	case scopeAll:
		return OrgScope(orgID), true
	case scopeGlobal:
		return s, true
	default:
		return s, s.orgID == orgID
	}
}

// IsAll reports whether the scope applies no tenant filter.
func (s Scope) IsAll() bool { return s.kind == scopeAll }

// OrgID returns the organization filter, or "" for the all and global scopes.
func (s Scope) OrgID() string { return s.orgID }

// Includes reports whether t is selected by the scope.
func (s Scope) Includes(t *AgentTemplate) bool {
	switch s.kind {
	case scopeAll:
		return true
	case scopeGlobal:
		return t.Global()
	default:
		return t.VisibleTo(s.orgID)
	}
}

// String returns the query-string form, also used as a cache key.
func (s Scope) String() string {
	switch s.kind {
	case scopeAll:
		return "all"
	case scopeGlobal:
		return "global"
	default:
		return "org:" + s.orgID
	}
}
