package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/medstargenx/accounts/internal/api/metrics"
	"github.com/medstargenx/accounts/internal/core/domain"
	"github.com/medstargenx/accounts/internal/core/ports"
)

// AdminHandler serves the approval workflow. Every route is mounted behind
// Authenticate and RequireRoles(administrator).
type AdminHandler struct {
	approvals ports.ApprovalService
}

func NewAdminHandler(approvals ports.ApprovalService) *AdminHandler {
	return &AdminHandler{approvals: approvals}
}

// PendingUsers lists accounts waiting for approval.
//
// @Summary      List pending accounts
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  Response{data=[]accountResponse}
// @Failure      401  {object}  Response
// @Failure      403  {object}  Response
// @Router       /admin/pending-users [get]
func (h *AdminHandler) PendingUsers(c echo.Context) error {
	accounts, err := h.approvals.ListPending(c.Request().Context())
	if err != nil {
		return err
	}
	return respondList(c, toAccountList(accounts), len(accounts))
}

// Users lists accounts with optional filters.
//
// @Summary      List accounts
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        status       query     string  false  "all, approved or pending"
// @Param        accountKind  query     string  false  "all, clinician or administrator"
// @Param        search       query     string  false  "case-insensitive match on name or email"
// @Success      200          {object}  Response{data=[]accountResponse}
// @Failure      400          {object}  Response
// @Failure      401          {object}  Response
// @Failure      403          {object}  Response
// @Router       /admin/users [get]
func (h *AdminHandler) Users(c echo.Context) error {
	filter := ports.ListAccountsFilter{
		Status: strings.ToLower(strings.TrimSpace(c.QueryParam("status"))),
		Search: strings.TrimSpace(c.QueryParam("search")),
	}
	if kind := strings.ToLower(strings.TrimSpace(c.QueryParam("accountKind"))); kind != "" && kind != "all" {
		filter.Kind = domain.Kind(kind)
	}

	accounts, err := h.approvals.ListAll(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return respondList(c, toAccountList(accounts), len(accounts))
}

// Stats returns account counters for the dashboard.
//
// @Summary      Account statistics
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  Response{data=domain.AccountStats}
// @Failure      401  {object}  Response
// @Failure      403  {object}  Response
// @Router       /admin/stats [get]
func (h *AdminHandler) Stats(c echo.Context) error {
	stats, err := h.approvals.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", stats)
}

// Activity returns the audit trail of one account.
//
// @Summary      Account activity
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account id"
// @Success      200  {object}  Response{data=[]activityResponse}
// @Failure      401  {object}  Response
// @Failure      403  {object}  Response
// @Router       /admin/users/{id}/activity [get]
func (h *AdminHandler) Activity(c echo.Context) error {
	records, err := h.approvals.Activity(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return respondList(c, toActivityList(records), len(records))
}

// Approve activates a pending account.
//
// @Summary      Approve an account
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account id"
// @Success      200  {object}  Response{data=userData}
// @Failure      401  {object}  Response
// @Failure      403  {object}  Response
// @Failure      404  {object}  Response
// @Failure      409  {object}  Response
// @Router       /admin/approve-user/{id} [put]
func (h *AdminHandler) Approve(c echo.Context) error {
	actor, err := currentAccount(c)
	if err != nil {
		return err
	}
	acc, err := h.approvals.Approve(c.Request().Context(), c.Param("id"), actor.ID)
	observeTransition(domain.EventApprove, err)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "User approved successfully", userData{User: toAccountResponse(acc)})
}

// Reject deletes a pending account.
//
// @Summary      Reject an account
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account id"
// @Success      200  {object}  Response
// @Failure      401  {object}  Response
// @Failure      403  {object}  Response
// @Failure      404  {object}  Response
// @Failure      409  {object}  Response
// @Router       /admin/reject-user/{id} [put]
// @Router       /admin/reject-user/{id} [delete]
func (h *AdminHandler) Reject(c echo.Context) error {
	actor, err := currentAccount(c)
	if err != nil {
		return err
	}
	err = h.approvals.Reject(c.Request().Context(), c.Param("id"), actor.ID)
	observeTransition(domain.EventReject, err)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "User registration rejected and removed", nil)
}

// Deactivate disables an active account.
//
// @Summary      Deactivate an account
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account id"
// @Success      200  {object}  Response{data=userData}
// @Failure      401  {object}  Response
// @Failure      403  {object}  Response
// @Failure      404  {object}  Response
// @Failure      409  {object}  Response
// @Router       /admin/deactivate-user/{id} [put]
func (h *AdminHandler) Deactivate(c echo.Context) error {
	actor, err := currentAccount(c)
	if err != nil {
		return err
	}
	acc, err := h.approvals.Deactivate(c.Request().Context(), c.Param("id"), actor.ID)
	observeTransition(domain.EventDeactivate, err)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "User deactivated successfully", userData{User: toAccountResponse(acc)})
}

// Delete removes a non-administrator account.
//
// @Summary      Delete an account
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account id"
// @Success      200  {object}  Response
// @Failure      400  {object}  Response
// @Failure      401  {object}  Response
// @Failure      403  {object}  Response
// @Failure      404  {object}  Response
// @Router       /admin/delete-user/{id} [delete]
func (h *AdminHandler) Delete(c echo.Context) error {
	actor, err := currentAccount(c)
	if err != nil {
		return err
	}
	err = h.approvals.AdminDelete(c.Request().Context(), c.Param("id"), actor.ID)
	observeTransition(domain.EventDelete, err)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "User deleted successfully", nil)
}

func observeTransition(ev domain.Event, err error) {
	result := "success"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		result = "not_found"
	case errors.Is(err, domain.ErrConflict):
		result = "conflict"
	case errors.Is(err, domain.ErrInvalidOperation):
		result = "invalid_operation"
	case errors.Is(err, domain.ErrForbidden):
		result = "forbidden"
	default:
		result = "error"
	}
	metrics.TransitionsTotal.WithLabelValues(string(ev), result).Inc()
}
