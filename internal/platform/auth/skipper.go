package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// infrastructurePaths bypass both the navigation guard and session checks.
var infrastructurePaths = map[string]bool{
	"/health":       true,
	"/health/db":    true,
	"/health/redis": true,
	"/metrics":      true,
}

// guardExemptPrefixes are served without running the navigation guard: JSON
// API routes authenticate on their own and static assets are public.
var guardExemptPrefixes = []string{
	"/api/",
	"/assets/",
	"/_next/",
	"/ws",
}

// GuardSkipper reports whether the navigation guard should ignore the request.
func GuardSkipper(c echo.Context) bool {
	path := c.Request().URL.Path
	if IsInfrastructurePath(path) {
		return true
	}
	for _, prefix := range guardExemptPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// IsInfrastructurePath reports whether path is a health or metrics endpoint.
func IsInfrastructurePath(path string) bool {
	return infrastructurePaths[path]
}
