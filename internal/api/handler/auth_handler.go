package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/medstargenx/accounts/internal/api/metrics"
	"github.com/medstargenx/accounts/internal/core/domain"
	"github.com/medstargenx/accounts/internal/core/ports"
)

type AuthHandler struct {
	accounts ports.AccountService
}

func NewAuthHandler(accounts ports.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// Register creates a new account. Administrators receive tokens right away;
// clinicians wait for approval.
//
// @Summary      Register a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      201   {object}  Response{data=authData}
// @Failure      400   {object}  Response
// @Failure      409   {object}  Response
// @Failure      500   {object}  Response
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.accounts.Register(c.Request().Context(), ports.RegisterInput{
		Name:           req.Name,
		Email:          req.Email,
		Password:       req.Password,
		Kind:           domain.Kind(req.AccountKind),
		Specialization: req.Specialization,
		LicenseNumber:  req.LicenseNumber,
	})
	if err != nil {
		return err
	}
	metrics.RegistrationsTotal.WithLabelValues(string(res.Account.Kind), strconv.FormatBool(res.Pending)).Inc()

	data := authData{User: toAccountResponse(res.Account)}
	if res.Pending || res.Tokens == nil {
		return respond(c, http.StatusCreated, "Registration successful. Your account is pending admin approval.", data)
	}
	data.AccessToken = res.Tokens.AccessToken
	data.RefreshToken = res.Tokens.RefreshToken
	return respond(c, http.StatusCreated, "User registered successfully", data)
}

// Login authenticates an account and returns a token pair.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  Response{data=authData}
// @Failure      400   {object}  Response
// @Failure      401   {object}  Response
// @Failure      429   {object}  Response
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.accounts.Login(c.Request().Context(), req.Email, req.Password)
	metrics.LoginsTotal.WithLabelValues(loginResult(err)).Inc()
	if err != nil {
		// Pending and deactivated accounts fail login as 401 with their own message.
		if errors.Is(err, domain.ErrAccountPending) || errors.Is(err, domain.ErrAccountDeactivated) {
			return &domain.RefusedLoginError{Err: err}
		}
		return err
	}

	return respond(c, http.StatusOK, "Login successful", authData{
		User:         toAccountResponse(res.Account),
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	})
}

// Refresh exchanges a refresh token for a new access token.
//
// @Summary      Refresh the access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Refresh token"
// @Success      200   {object}  Response{data=refreshData}
// @Failure      400   {object}  Response
// @Failure      401   {object}  Response
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	access, err := h.accounts.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("rejected").Inc()
		return err
	}
	metrics.TokenRefreshTotal.WithLabelValues("success").Inc()
	return respond(c, http.StatusOK, "", refreshData{AccessToken: access})
}

// Me returns the authenticated account.
//
// @Summary      Current account
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  Response{data=userData}
// @Failure      401  {object}  Response
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	acc, err := currentAccount(c)
	if err != nil {
		return err
	}
	fresh, err := h.accounts.Me(c.Request().Context(), acc.ID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", userData{User: toAccountResponse(fresh)})
}

// UpdateProfile changes the caller's name and/or e-mail.
//
// @Summary      Update own profile
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateProfileRequest  true  "Profile fields"
// @Success      200   {object}  Response{data=userData}
// @Failure      400   {object}  Response
// @Failure      401   {object}  Response
// @Failure      409   {object}  Response
// @Router       /auth/profile [put]
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	acc, err := currentAccount(c)
	if err != nil {
		return err
	}
	var req updateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	updated, err := h.accounts.UpdateProfile(c.Request().Context(), acc.ID, req.Name, req.Email)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Profile updated successfully", userData{User: toAccountResponse(updated)})
}

// Logout is advisory: tokens are stateless and stay valid until they expire.
// Clients are expected to discard them.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  Response
// @Failure      401  {object}  Response
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	if _, err := currentAccount(c); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Logged out successfully", nil)
}

func loginResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrAccountPending):
		return "pending"
	case errors.Is(err, domain.ErrAccountDeactivated):
		return "deactivated"
	case errors.Is(err, domain.ErrTooManyAttempts):
		return "locked"
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrInvalidInput):
		return "invalid_credentials"
	default:
		return "error"
	}
}
