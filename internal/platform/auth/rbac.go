package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Trial roles. Investigators and data managers enter CRFs, monitors only
// review them, and an admin passes every check on every site.
const (
	RoleAdmin        = "admin"
	RoleInvestigator = "investigator"
	RoleDataManager  = "data_manager"
	RoleMonitor      = "monitor"
)

var crfRoles = map[string]bool{RoleInvestigator: true, RoleDataManager: true, RoleMonitor: true}

// Where a request names the site it targets.
const (
	SiteHeader     = "X-Site-ID"
	SiteQueryParam = "site"
)

// RequireRole admits a user holding at least one of roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			held := RolesFromContext(c.Request().Context())
			if hasRole(held, RoleAdmin) {
				return next(c)
			}
			for _, r := range roles {
				if hasRole(held, r) {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// RequireCRFRead admits every trial role.
func RequireCRFRead() echo.MiddlewareFunc {
	return RequireRole(RoleInvestigator, RoleDataManager, RoleMonitor)
}

// RequireCRFEntry admits the roles that may validate and store CRFs.
func RequireCRFEntry() echo.MiddlewareFunc {
	return RequireRole(RoleInvestigator, RoleDataManager)
}

// RequireOwnSite rejects a request that names a site other than the one its
// token is bound to, instead of quietly serving the token's site.
func RequireOwnSite() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			bound, _ := c.Get(SiteContextKey).(string)
			if bound == "" {
				return next(c)
			}
			requested := c.Request().Header.Get(SiteHeader)
			if requested == "" {
				requested = c.QueryParam(SiteQueryParam)
			}
			if requested != "" && requested != bound {
				return echo.NewHTTPError(http.StatusForbidden,
					fmt.Sprintf("token is bound to site %s, not %s", bound, requested))
			}
			return next(c)
		}
	}
}

func hasRole(held []string, role string) bool {
	for _, r := range held {
		if r == role {
			return true
		}
	}
	return false
}
