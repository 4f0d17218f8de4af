package auth

// GuardState classifies a navigation request.
type GuardState int

const (
	StateUnauthenticated GuardState = iota
	StateAuthenticatedAllowed
	StateAuthenticatedDenied
)

func (s GuardState) String() string {
	switch s {
	case StateUnauthenticated:
		return "UNAUTHENTICATED"
	case StateAuthenticatedAllowed:
		return "AUTHENTICATED_ALLOWED"
	case StateAuthenticatedDenied:
		return "AUTHENTICATED_DENIED"
	}
	return "UNKNOWN"
}

// Action is what the guard tells the transport layer to do.
type Action int

const (
	ActionAllow Action = iota
	ActionRedirect
)

// Credentials are the inputs the guard reads from the session: the session
// token (presence only) and the caller's role, which may be empty.
type Credentials struct {
	Token string
	Role  Role
}

// Decision is the outcome of one guard evaluation.
type Decision struct {
	State    GuardState
	Action   Action
	Location string // redirect target when Action == ActionRedirect
	Rule     string // matched route template, if any
}

// Allowed reports whether the request passes through.
func (d Decision) Allowed() bool { return d.Action == ActionAllow }

// Guard decides allow / redirect for every page navigation.
type Guard struct {
	registry *Registry
}

// NewGuard returns a guard over registry.
func NewGuard(registry *Registry) *Guard {
	return &Guard{registry: registry}
}

// Registry returns the registry the guard evaluates against.
func (g *Guard) Registry() *Registry { return g.registry }

// Decide evaluates one navigation. It is pure: the same credentials and path
// always yield the same decision.
func (g *Guard) Decide(creds Credentials, path string) Decision {
	rule, matched := g.registry.FirstMatch(path)

	if creds.Token == "" {
		if matched {
			return Decision{State: StateUnauthenticated, Action: ActionRedirect, Location: RootPath, Rule: rule.PathTemplate}
		}
		return Decision{State: StateUnauthenticated, Action: ActionAllow}
	}

	landing := g.registry.DefaultRoute(creds.Role)

	if g.registry.IsPublicOnly(path) {
		// A session without a known role lands on RootPath; serving it
		// instead of redirecting to itself keeps the browser out of a loop.
		if landing == path {
			return Decision{State: StateAuthenticatedDenied, Action: ActionAllow}
		}
		return Decision{State: StateAuthenticatedDenied, Action: ActionRedirect, Location: landing}
	}
	if !matched {
		return Decision{State: StateAuthenticatedAllowed, Action: ActionAllow}
	}
	if creds.Role != "" && rule.Allows(creds.Role) {
		return Decision{State: StateAuthenticatedAllowed, Action: ActionAllow, Rule: rule.PathTemplate}
	}
	return Decision{State: StateAuthenticatedDenied, Action: ActionRedirect, Location: landing, Rule: rule.PathTemplate}
}
