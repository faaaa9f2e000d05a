package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medstargenx/accounts/internal/api/middleware"
	"github.com/medstargenx/accounts/internal/core/domain"
	"github.com/medstargenx/accounts/internal/core/ports"
)

type stubAccountService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*ports.RegisterResult, error)
	loginFn    func(ctx context.Context, email, password string) (*ports.LoginResult, error)
	refreshFn  func(ctx context.Context, token string) (string, error)
	meFn       func(ctx context.Context, id string) (*domain.Account, error)
	profileFn  func(ctx context.Context, id, name, email string) (*domain.Account, error)
}

func (s *stubAccountService) Register(ctx context.Context, in ports.RegisterInput) (*ports.RegisterResult, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAccountService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAccountService) Refresh(ctx context.Context, token string) (string, error) {
	return s.refreshFn(ctx, token)
}

func (s *stubAccountService) Me(ctx context.Context, id string) (*domain.Account, error) {
	return s.meFn(ctx, id)
}

func (s *stubAccountService) UpdateProfile(ctx context.Context, id, name, email string) (*domain.Account, error) {
	return s.profileFn(ctx, id, name, email)
}

func newTestContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return resp
}

func clinician() *domain.Account {
	return &domain.Account{
		ID: "acc-1", Name: "Dr. A", Email: "a@x.com", PasswordHash: "secret-hash",
		Role: domain.RoleStandard, Kind: domain.KindClinician, IsActive: true,
		Specialization: "Oncology", LicenseNumber: "L-1", CreatedAt: time.Now(),
	}
}

func TestAuthHandler_Register_PendingClinician(t *testing.T) {
	stub := &stubAccountService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*ports.RegisterResult, error) {
			if in.Email != "a@x.com" || in.Kind != domain.KindClinician || in.LicenseNumber != "L-1" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &ports.RegisterResult{Account: clinician(), Pending: true}, nil
		},
	}
	c, rec := newTestContext(http.MethodPost, "/auth/register",
		`{"name":"Dr. A","email":"a@x.com","password":"secret123","accountKind":"clinician","specialization":"Oncology","licenseNumber":"L-1"}`)

	if err := NewAuthHandler(stub).Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	resp := decodeResponse(t, rec)
	if resp["success"] != true || !strings.Contains(resp["message"].(string), "pending admin approval") {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	data := resp["data"].(map[string]any)
	if _, ok := data["accessToken"]; ok {
		t.Fatalf("pending registration must not carry tokens")
	}
	user := data["user"].(map[string]any)
	if user["status"] != string(domain.StatePendingApproval) {
		t.Fatalf("unexpected status: %v", user["status"])
	}
	if strings.Contains(rec.Body.String(), "secret-hash") {
		t.Fatalf("password hash leaked: %s", rec.Body.String())
	}
}

func TestAuthHandler_Register_AdministratorGetsTokens(t *testing.T) {
	stub := &stubAccountService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*ports.RegisterResult, error) {
			acc := &domain.Account{ID: "acc-0", Email: in.Email, Role: domain.RoleAdministrator, Kind: domain.KindAdministrator, IsActive: true, IsApproved: true}
			return &ports.RegisterResult{Account: acc, Tokens: &ports.TokenPair{AccessToken: "at", RefreshToken: "rt"}}, nil
		},
	}
	c, rec := newTestContext(http.MethodPost, "/auth/register",
		`{"name":"Root","email":"root@x.com","password":"admin123","accountKind":"administrator"}`)

	if err := NewAuthHandler(stub).Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	data := decodeResponse(t, rec)["data"].(map[string]any)
	if data["accessToken"] != "at" || data["refreshToken"] != "rt" {
		t.Fatalf("expected token pair, got %+v", data)
	}
}

func TestAuthHandler_Register_ValidationErrors(t *testing.T) {
	stub := &stubAccountService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*ports.RegisterResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	c, _ := newTestContext(http.MethodPost, "/auth/register",
		`{"name":"Dr. A","email":"not-an-email","password":"123","accountKind":"clinician"}`)

	err := NewAuthHandler(stub).Register(c)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	got := map[string]bool{}
	for _, f := range verr.Fields {
		got[f.Field] = true
	}
	for _, want := range []string{"email", "password", "specialization", "licenseNumber"} {
		if !got[want] {
			t.Fatalf("expected field %q in %+v", want, verr.Fields)
		}
	}
}

func TestAuthHandler_Register_PasswordTooLong(t *testing.T) {
	stub := &stubAccountService{}
	body := `{"name":"Admin","email":"a@x.com","password":"` + strings.Repeat("a", 73) + `","accountKind":"administrator"}`
	c, _ := newTestContext(http.MethodPost, "/auth/register", body)

	err := NewAuthHandler(stub).Register(c)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(verr.Fields) != 1 || verr.Fields[0].Field != "password" {
		t.Fatalf("expected only a password error, got %+v", verr.Fields)
	}
	if verr.Fields[0].Message != "password must be at most 72 characters" {
		t.Fatalf("unexpected message %q", verr.Fields[0].Message)
	}
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	stub := &stubAccountService{}
	c, _ := newTestContext(http.MethodPost, "/auth/register", "not-json")

	if err := NewAuthHandler(stub).Register(c); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestAuthHandler_Register_Conflict(t *testing.T) {
	stub := &stubAccountService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*ports.RegisterResult, error) {
			return nil, &domain.DuplicateKeyError{Field: "email"}
		},
	}
	c, _ := newTestContext(http.MethodPost, "/auth/register",
		`{"name":"Root","email":"root@x.com","password":"admin123","accountKind":"administrator"}`)

	if err := NewAuthHandler(stub).Register(c); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubAccountService{
		loginFn: func(ctx context.Context, email, password string) (*ports.LoginResult, error) {
			if email != "a@x.com" || password != "secret123" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			acc := clinician()
			acc.IsApproved = true
			return &ports.LoginResult{Account: acc, Tokens: ports.TokenPair{AccessToken: "at", RefreshToken: "rt"}}, nil
		},
	}
	c, rec := newTestContext(http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"secret123"}`)

	if err := NewAuthHandler(stub).Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := decodeResponse(t, rec)["data"].(map[string]any)
	if data["accessToken"] != "at" {
		t.Fatalf("expected access token, got %+v", data)
	}
}

func TestAuthHandler_Login_StateRefusalIsUnauthenticated(t *testing.T) {
	for _, stateErr := range []error{domain.ErrAccountPending, domain.ErrAccountDeactivated} {
		stub := &stubAccountService{
			loginFn: func(ctx context.Context, email, password string) (*ports.LoginResult, error) {
				return nil, stateErr
			},
		}
		c, rec := newTestContext(http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"secret123"}`)

		err := NewAuthHandler(stub).Login(c)
		if !errors.Is(err, stateErr) {
			t.Fatalf("expected %v to be kept, got %v", stateErr, err)
		}
		if !errors.Is(err, domain.ErrUnauthenticated) {
			t.Fatalf("expected %v to be reported as unauthenticated", stateErr)
		}
		if rec.Body.Len() != 0 {
			t.Fatalf("handler must leave the response to the error handler")
		}
	}
}

func TestAuthHandler_Login_InvalidCredentialsUnchanged(t *testing.T) {
	stub := &stubAccountService{
		loginFn: func(ctx context.Context, email, password string) (*ports.LoginResult, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	c, _ := newTestContext(http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"wrong1"}`)

	err := NewAuthHandler(stub).Login(c)
	if err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	stub := &stubAccountService{
		refreshFn: func(ctx context.Context, token string) (string, error) {
			if token != "rt" {
				return "", domain.ErrInvalidToken
			}
			return "new-at", nil
		},
	}

	c, rec := newTestContext(http.MethodPost, "/auth/refresh", `{"refreshToken":"rt"}`)
	if err := NewAuthHandler(stub).Refresh(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if decodeResponse(t, rec)["data"].(map[string]any)["accessToken"] != "new-at" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}

	c, _ = newTestContext(http.MethodPost, "/auth/refresh", `{"refreshToken":"bad"}`)
	if err := NewAuthHandler(stub).Refresh(c); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}

	c, _ = newTestContext(http.MethodPost, "/auth/refresh", `{}`)
	if err := NewAuthHandler(stub).Refresh(c); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestAuthHandler_MeAndProfile(t *testing.T) {
	acc := clinician()
	stub := &stubAccountService{
		meFn: func(ctx context.Context, id string) (*domain.Account, error) {
			if id != acc.ID {
				t.Fatalf("unexpected id %s", id)
			}
			return acc, nil
		},
		profileFn: func(ctx context.Context, id, name, email string) (*domain.Account, error) {
			updated := *acc
			updated.Name = name
			return &updated, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newTestContext(http.MethodGet, "/auth/me", "")
	c.Set(middleware.ContextKeyAccount, acc)
	if err := h.Me(c); err != nil {
		t.Fatalf("me error: %v", err)
	}
	user := decodeResponse(t, rec)["data"].(map[string]any)["user"].(map[string]any)
	if user["email"] != "a@x.com" {
		t.Fatalf("unexpected user: %+v", user)
	}

	c, rec = newTestContext(http.MethodPut, "/auth/profile", `{"name":"Dr. B"}`)
	c.Set(middleware.ContextKeyAccount, acc)
	if err := h.UpdateProfile(c); err != nil {
		t.Fatalf("profile error: %v", err)
	}
	user = decodeResponse(t, rec)["data"].(map[string]any)["user"].(map[string]any)
	if user["name"] != "Dr. B" {
		t.Fatalf("unexpected user: %+v", user)
	}

	c, _ = newTestContext(http.MethodGet, "/auth/me", "")
	if err := h.Me(c); err == nil {
		t.Fatalf("expected error without authenticated account")
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	c, rec := newTestContext(http.MethodPost, "/auth/logout", "")
	c.Set(middleware.ContextKeyAccount, clinician())

	if err := NewAuthHandler(&stubAccountService{}).Logout(c); err != nil {
		t.Fatalf("logout error: %v", err)
	}
	if rec.Code != http.StatusOK || decodeResponse(t, rec)["success"] != true {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Body.String())
	}
}
