package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medstargenx/accounts/internal/api/middleware"
	"github.com/medstargenx/accounts/internal/core/domain"
)

// currentAccount returns the account injected by the Authenticate middleware.
// Its absence means the route was mounted without the gateway, which is a
// wiring error rather than a client error.
func currentAccount(c echo.Context) (*domain.Account, error) {
	acc, ok := middleware.AccountFromContext(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication context")
	}
	return acc, nil
}

// bindAndValidate decodes the JSON body into req and runs the registered
// validator over it.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.NewValidationError(domain.FieldError{Field: "body", Message: "invalid payload"})
	}
	return c.Validate(req)
}

func respond(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, Response{Success: true, Message: message, Data: data})
}

func respondList(c echo.Context, data any, count int) error {
	return c.JSON(http.StatusOK, Response{Success: true, Data: data, Count: &count})
}
