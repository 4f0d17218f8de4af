package auth

import (
	"fmt"
)

// RootPath is the login page. Unauthenticated visitors of protected pages and
// authenticated users without a known role are sent here.
const RootPath = "/"

// RoleRoutes is one row of the registry table: a role and the ordered list of
// route templates it may reach. The first template is the role's landing page.
type RoleRoutes struct {
	Role      Role
	Templates []string
}

// RouteRule tags a route template with the roles allowed to reach it.
type RouteRule struct {
	PathTemplate string
	AllowedRoles map[Role]bool
	template     *Template
}

// Allows reports whether role may navigate to paths matching the rule.
func (r RouteRule) Allows(role Role) bool {
	return r.AllowedRoles[role]
}

// Matches reports whether path matches the rule's template.
func (r RouteRule) Matches(path string) bool {
	return r.template.Match(path)
}

// DefaultRoleRoutes is the dashboard's navigation table.
var DefaultRoleRoutes = []RoleRoutes{
	{Role: RoleLabChief, Templates: []string{
		"/akin/dashboard",
		"/akin/schedule/request",
		"/akin/schedule/completed",
		"/akin/schedule/details/:id",
		"/akin/patient",
		"/akin/patient/:id",
		"/akin/patient/:id/exam-history",
		"/akin/team-management",
		"/akin/lab-exams",
		"/akin/notifications",
		"/akin/message",
		"/akin/setting",
	}},
	{Role: RoleReceptionist, Templates: []string{
		"/akin/schedule/new",
		"/akin/schedule/request",
		"/akin/schedule/completed",
		"/akin/schedule/details/:id",
		"/akin/patient",
		"/akin/patient/:id",
		"/akin/payment",
		"/akin/notifications",
		"/akin/message",
		"/akin/setting",
	}},
	{Role: RoleTechnician, Templates: []string{
		"/akin/dashboard",
		"/akin/lab-exams",
		"/akin/schedule/completed",
		"/akin/patient/:id",
		"/akin/patient/:id/exam-history",
		"/akin/notifications",
		"/akin/message",
		"/akin/setting",
	}},
}

// DefaultPublicOnlyPaths are reachable only without a session. Authenticated
// users requesting them are sent to their landing page.
var DefaultPublicOnlyPaths = []string{
	RootPath,
	"/auth/signup",
	"/auth/forgot-password",
	"/auth/reset-password",
}

// Registry is the static role → route configuration. It is immutable after
// construction; accessors return copies.
type Registry struct {
	table      map[Role][]string
	rules      []RouteRule
	publicOnly map[string]bool
}

// NewRegistry builds a registry from an ordered table. Route rules are derived
// in declaration order: the first occurrence of a template fixes its position
// and later rows only add roles to it.
func NewRegistry(rows []RoleRoutes, publicOnly []string) (*Registry, error) {
	reg := &Registry{
		table:      make(map[Role][]string, len(rows)),
		publicOnly: make(map[string]bool, len(publicOnly)),
	}
	index := make(map[string]int)

	for _, row := range rows {
		if !row.Role.Valid() {
			return nil, fmt.Errorf("registry: unknown role %q", row.Role)
		}
		if _, dup := reg.table[row.Role]; dup {
			return nil, fmt.Errorf("registry: role %s declared twice", row.Role)
		}
		if len(row.Templates) == 0 {
			return nil, fmt.Errorf("registry: role %s has no routes", row.Role)
		}
		reg.table[row.Role] = append([]string(nil), row.Templates...)

		for _, tmpl := range row.Templates {
			if i, ok := index[tmpl]; ok {
				reg.rules[i].AllowedRoles[row.Role] = true
				continue
			}
			compiled, err := CompileTemplate(tmpl)
			if err != nil {
				return nil, fmt.Errorf("registry: %w", err)
			}
			index[tmpl] = len(reg.rules)
			reg.rules = append(reg.rules, RouteRule{
				PathTemplate: tmpl,
				AllowedRoles: map[Role]bool{row.Role: true},
				template:     compiled,
			})
		}
	}

	for _, p := range publicOnly {
		reg.publicOnly[p] = true
	}
	return reg, nil
}

// MustDefaultRegistry returns the registry built from DefaultRoleRoutes.
func MustDefaultRegistry() *Registry {
	reg, err := NewRegistry(DefaultRoleRoutes, DefaultPublicOnlyPaths)
	if err != nil {
		panic(err)
	}
	return reg
}

// DefaultRoute returns the landing page of role: the first template of its
// row. Unknown roles land on RootPath.
func (r *Registry) DefaultRoute(role Role) string {
	routes, ok := r.table[role]
	if !ok || len(routes) == 0 {
		return RootPath
	}
	return routes[0]
}

// RoutesFor returns the ordered templates reachable by role.
func (r *Registry) RoutesFor(role Role) []string {
	return append([]string(nil), r.table[role]...)
}

// Rules returns the derived route rules in declaration order.
func (r *Registry) Rules() []RouteRule {
	out := make([]RouteRule, len(r.rules))
	for i, rule := range r.rules {
		roles := make(map[Role]bool, len(rule.AllowedRoles))
		for k, v := range rule.AllowedRoles {
			roles[k] = v
		}
		out[i] = RouteRule{PathTemplate: rule.PathTemplate, AllowedRoles: roles, template: rule.template}
	}
	return out
}

// FirstMatch returns the first declared rule whose template matches path.
func (r *Registry) FirstMatch(path string) (RouteRule, bool) {
	for _, rule := range r.rules {
		if rule.Matches(path) {
			return rule, true
		}
	}
	return RouteRule{}, false
}

// IsPublicOnly reports whether path is reachable only without a session.
func (r *Registry) IsPublicOnly(path string) bool {
	return r.publicOnly[path]
}

// IsProtected reports whether any rule guards path.
func (r *Registry) IsProtected(path string) bool {
	_, ok := r.FirstMatch(path)
	return ok
}
