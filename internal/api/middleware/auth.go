package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medstargenx/accounts/internal/core/domain"
	"github.com/medstargenx/accounts/internal/core/ports"
)

// ContextKeyAccount is the echo context key holding the authenticated account.
const ContextKeyAccount = "account"

// errNotAuthorized is returned for every authentication failure so callers
// cannot tell a bad token from a missing account.
var errNotAuthorized = &domain.KindError{
	Kind: domain.ErrUnauthenticated,
	Msg:  "not authorized to access this route, please login",
}

// AccountFinder resolves the account named by a token.
type AccountFinder interface {
	FindByID(ctx context.Context, id string) (*domain.Account, error)
}

// Authenticate validates the bearer access token, resolves its account and
// injects it into the context. Deactivated accounts are rejected with 403.
func Authenticate(tokens ports.TokenService, accounts AccountFinder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return errNotAuthorized
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				return errNotAuthorized
			}

			accountID, err := tokens.ParseAccess(parts[1])
			if err != nil {
				return errNotAuthorized
			}

			req := c.Request()
			acc, err := accounts.FindByID(req.Context(), accountID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return errNotAuthorized
				}
				return fmt.Errorf("authenticate: %w", err)
			}
			if !acc.IsActive {
				return domain.ErrAccountDeactivated
			}

			c.Set(ContextKeyAccount, acc)
			l := zerolog.Ctx(req.Context()).With().Str("account_id", acc.ID).Logger()
			c.SetRequest(req.WithContext(l.WithContext(req.Context())))

			return next(c)
		}
	}
}

// AccountFromContext returns the account injected by Authenticate.
func AccountFromContext(c echo.Context) (*domain.Account, bool) {
	acc, ok := c.Get(ContextKeyAccount).(*domain.Account)
	return acc, ok && acc != nil
}
