package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/medstargenx/accounts/internal/core/domain"
)

// RequireRoles enforces role-based access control. It must run after
// Authenticate.
func RequireRoles(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	names := make([]string, 0, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
		names = append(names, string(r))
	}
	denied := &domain.KindError{
		Kind: domain.ErrForbidden,
		Msg:  "access denied: requires role " + strings.Join(names, " or "),
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			acc, ok := AccountFromContext(c)
			if !ok {
				return errNotAuthorized
			}
			if _, ok := allowed[acc.Role]; !ok {
				return denied
			}
			return next(c)
		}
	}
}
