package auth

import (
	"fmt"
	"regexp"
	"strings"
)

// paramToken finds ":name" placeholders inside a route template.
var paramToken = regexp.MustCompile(`:[A-Za-z_][A-Za-z0-9_]*`)

// Template is a compiled route template. A ":name" token matches one or more
// non-slash characters; everything else is literal. Trailing slashes are
// significant: "/akin/patient/" does not match "/akin/patient".
type Template struct {
	raw    string
	names  []string
	regexp *regexp.Regexp
}

// CompileTemplate compiles a template such as "/akin/patient/:id".
func CompileTemplate(tmpl string) (*Template, error) {
	if !strings.HasPrefix(tmpl, "/") {
		return nil, fmt.Errorf("route template %q must be absolute", tmpl)
	}

	var (
		pattern strings.Builder
		names   []string
		last    int
	)
	pattern.WriteString("^")
	for _, loc := range paramToken.FindAllStringIndex(tmpl, -1) {
		pattern.WriteString(regexp.QuoteMeta(tmpl[last:loc[0]]))
		pattern.WriteString("([^/]+)")
		names = append(names, tmpl[loc[0]+1:loc[1]])
		last = loc[1]
	}
	pattern.WriteString(regexp.QuoteMeta(tmpl[last:]))
	pattern.WriteString("$")

	re, err := regexp.Compile(pattern.String())
	if err != nil {
		return nil, fmt.Errorf("compile route template %q: %w", tmpl, err)
	}
	return &Template{raw: tmpl, names: names, regexp: re}, nil
}

// String returns the template source.
func (t *Template) String() string { return t.raw }

// Match reports whether path matches the whole template.
func (t *Template) Match(path string) bool {
	return t.regexp.MatchString(path)
}

// Params extracts the named parameters of path, or nil when it does not match.
func (t *Template) Params(path string) map[string]string {
	m := t.regexp.FindStringSubmatch(path)
	if m == nil {
		return nil
	}
	params := make(map[string]string, len(t.names))
	for i, name := range t.names {
		params[name] = m[i+1]
	}
	return params
}

// Match compiles template and tests path against it. Invalid templates never
// match.
func Match(template, path string) bool {
	t, err := CompileTemplate(template)
	if err != nil {
		return false
	}
	return t.Match(path)
}
