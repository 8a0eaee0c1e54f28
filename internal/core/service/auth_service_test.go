package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/cbs/consultation-web/internal/core/domain"
	"github.com/cbs/consultation-web/internal/core/ports"
	"github.com/cbs/consultation-web/internal/infrastructure/memory"
)

type apiCall struct {
	method string
	path   string
	body   any
	opts   ports.CallOptions
}

// stubAPI answers backend calls through handle and records every call.
// A non-nil response is JSON round-tripped into out.
type stubAPI struct {
	mu     sync.Mutex
	calls  []apiCall
	handle func(method, path string, body any) (any, error)
}

func (s *stubAPI) do(method, path string, body, out any, opts []ports.CallOption) error {
	var o ports.CallOptions
	for _, opt := range opts {
		opt(&o)
	}
	s.mu.Lock()
	s.calls = append(s.calls, apiCall{method: method, path: path, body: body, opts: o})
	s.mu.Unlock()

	if s.handle == nil {
		return nil
	}
	resp, err := s.handle(method, path, body)
	if err != nil {
		return err
	}
	if out != nil && resp != nil {
		buf, err := json.Marshal(resp)
		if err != nil {
			return err
		}
		return json.Unmarshal(buf, out)
	}
	return nil
}

func (s *stubAPI) Get(_ context.Context, path string, out any, opts ...ports.CallOption) error {
	return s.do("GET", path, nil, out, opts)
}

func (s *stubAPI) Post(_ context.Context, path string, body, out any, opts ...ports.CallOption) error {
	return s.do("POST", path, body, out, opts)
}

func (s *stubAPI) Patch(_ context.Context, path string, body, out any, opts ...ports.CallOption) error {
	return s.do("PATCH", path, body, out, opts)
}

func (s *stubAPI) Delete(_ context.Context, path string, out any, opts ...ports.CallOption) error {
	return s.do("DELETE", path, nil, out, opts)
}

func (s *stubAPI) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *stubAPI) lastCall() apiCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[len(s.calls)-1]
}

func testUser() *domain.User {
	return &domain.User{ID: "u1", Name: "Asha", Email: "asha@example.com", Role: domain.RoleUser, Phone: "9999999999"}
}

func newTestAuthService(api *stubAPI) (*AuthService, ports.SessionStore) {
	store := memory.NewSessionStores(time.Hour).Scope("sid")
	return NewAuthService(api, store, nil, time.Minute, zerolog.Nop()), store
}

func apiErr(kind error, status int, msg string) error {
	return &domain.APIError{Kind: kind, Status: status, Message: msg}
}

func TestAuthService_Login_Success(t *testing.T) {
	api := &stubAPI{handle: func(method, path string, body any) (any, error) {
		if method != "POST" || path != "/auth/login" {
			t.Fatalf("unexpected call %s %s", method, path)
		}
		return map[string]any{"user": testUser(), "token": "tok-1"}, nil
	}}
	svc, store := newTestAuthService(api)

	user, err := svc.Login(context.Background(), "  asha@example.com ", "secret")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if user.Email != "asha@example.com" {
		t.Fatalf("expected email asha@example.com, got %s", user.Email)
	}

	sent := api.lastCall().body.(map[string]string)
	if sent["email"] != "asha@example.com" {
		t.Fatalf("expected trimmed email to be sent, got %q", sent["email"])
	}

	sess, err := store.Load(context.Background())
	if err != nil || sess == nil {
		t.Fatalf("expected stored session, got %v (err %v)", sess, err)
	}
	if sess.Token != "tok-1" || sess.User.ID != "u1" {
		t.Fatalf("stored session mismatch: %+v", sess)
	}
}

func TestAuthService_Login_MissingCredentials(t *testing.T) {
	api := &stubAPI{}
	svc, _ := newTestAuthService(api)

	for _, tc := range []struct{ email, password string }{
		{"", "secret"},
		{"asha@example.com", ""},
		{"   ", "secret"},
	} {
		_, err := svc.Login(context.Background(), tc.email, tc.password)
		if !errors.Is(err, domain.ErrMissingCredentials) {
			t.Fatalf("expected ErrMissingCredentials for %+v, got %v", tc, err)
		}
		if !domain.RejectedLocally(err) {
			t.Fatalf("expected a local rejection for %+v", tc)
		}
	}
	if api.callCount() != 0 {
		t.Fatalf("expected no network calls, got %d", api.callCount())
	}
}

func TestAuthService_Login_Unauthorized(t *testing.T) {
	api := &stubAPI{handle: func(string, string, any) (any, error) {
		return nil, apiErr(domain.ErrUnauthorized, 401, "Your session has expired. Please log in again.")
	}}
	svc, store := newTestAuthService(api)
	_ = store.Save(context.Background(), testUser(), "stale")

	_, err := svc.Login(context.Background(), "a@b.com", "wrong")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if sess, _ := store.Load(context.Background()); sess != nil {
		t.Fatalf("expected empty store after failed login, got %+v", sess)
	}
}

func TestAuthService_Login_IncompleteResponse(t *testing.T) {
	cases := map[string]any{
		"missing token": map[string]any{"user": testUser()},
		"missing user":  map[string]any{"token": "tok"},
		"blank token":   map[string]any{"user": testUser(), "token": "  "},
	}
	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			api := &stubAPI{handle: func(string, string, any) (any, error) { return resp, nil }}
			svc, store := newTestAuthService(api)

			_, err := svc.Login(context.Background(), "a@b.com", "pw")
			if !errors.Is(err, domain.ErrInvalidServerResponse) {
				t.Fatalf("expected ErrInvalidServerResponse, got %v", err)
			}
			if sess, _ := store.Load(context.Background()); sess != nil {
				t.Fatalf("expected no partial session, got %+v", sess)
			}
		})
	}
}

func TestAuthService_Login_EmailValidationGetsField(t *testing.T) {
	api := &stubAPI{handle: func(string, string, any) (any, error) {
		return nil, domain.NewValidationError("Email is not registered", nil)
	}}
	svc, _ := newTestAuthService(api)

	_, err := svc.Login(context.Background(), "a@b.com", "pw")
	if !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
	if domain.AsAPIError(err).Fields["email"] == "" {
		t.Fatalf("expected email field detail, got %+v", domain.AsAPIError(err).Fields)
	}
}

func TestAuthService_Register_ValidatesLocally(t *testing.T) {
	api := &stubAPI{}
	svc, _ := newTestAuthService(api)

	_, err := svc.Register(context.Background(), ports.RegisterInput{Email: "not-an-email"})
	if !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
	if !domain.RejectedLocally(err) {
		t.Fatalf("expected the failure to be marked local")
	}
	fields := domain.AsAPIError(err).Fields
	for _, f := range []string{"name", "email", "password"} {
		if fields[f] == "" {
			t.Fatalf("expected field error for %s, got %+v", f, fields)
		}
	}
	if api.callCount() != 0 {
		t.Fatalf("expected no network calls, got %d", api.callCount())
	}
}

func TestAuthService_Register_Success(t *testing.T) {
	api := &stubAPI{handle: func(method, path string, body any) (any, error) {
		if path != "/auth/register" {
			t.Fatalf("unexpected path %s", path)
		}
		in := body.(ports.RegisterInput)
		if in.Phone != "" {
			t.Fatalf("expected optional phone to stay empty, got %q", in.Phone)
		}
		return map[string]any{"user": testUser(), "token": "tok"}, nil
	}}
	svc, store := newTestAuthService(api)

	user, err := svc.Register(context.Background(), ports.RegisterInput{
		Name: "Asha", Email: "asha@example.com", Password: "secret",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.ID != "u1" {
		t.Fatalf("expected u1, got %s", user.ID)
	}
	if sess, _ := store.Load(context.Background()); sess == nil || sess.Token != "tok" {
		t.Fatalf("expected stored session, got %+v", sess)
	}
}

func TestAuthService_GetCurrentUser_NoSessionNoCalls(t *testing.T) {
	api := &stubAPI{}
	svc, _ := newTestAuthService(api)

	if u := svc.GetCurrentUser(context.Background()); u != nil {
		t.Fatalf("expected nil user, got %+v", u)
	}
	if api.callCount() != 0 {
		t.Fatalf("expected zero network calls, got %d", api.callCount())
	}
}

func TestAuthService_GetCurrentUser_FreshCache(t *testing.T) {
	api := &stubAPI{}
	svc, store := newTestAuthService(api)
	_ = store.Save(context.Background(), testUser(), "tok")

	u := svc.GetCurrentUser(context.Background())
	if u == nil || u.ID != "u1" {
		t.Fatalf("expected cached user, got %+v", u)
	}
	if api.callCount() != 0 {
		t.Fatalf("expected cache hit without network, got %d calls", api.callCount())
	}
}

func TestAuthService_GetCurrentUser_RefreshesStaleCache(t *testing.T) {
	refreshed := testUser()
	refreshed.Name = "Asha R"
	api := &stubAPI{handle: func(method, path string, _ any) (any, error) {
		if method != "GET" || path != "/user/profile" {
			t.Fatalf("unexpected call %s %s", method, path)
		}
		return map[string]any{"user": refreshed}, nil
	}}
	svc, store := newTestAuthService(api)
	_ = store.Save(context.Background(), testUser(), "tok")
	svc.now = func() time.Time { return time.Now().Add(time.Hour) }

	u := svc.GetCurrentUser(context.Background())
	if u == nil || u.Name != "Asha R" {
		t.Fatalf("expected refreshed user, got %+v", u)
	}
	sess, _ := store.Load(context.Background())
	if sess.User.Name != "Asha R" || sess.Token != "tok" {
		t.Fatalf("expected cache replaced with token kept, got %+v", sess)
	}
}

func TestAuthService_GetCurrentUser_FailureIsAbsent(t *testing.T) {
	for _, kind := range []error{domain.ErrUnauthorized, domain.ErrUnreachable, domain.ErrInvalidServerResponse} {
		api := &stubAPI{handle: func(string, string, any) (any, error) {
			return nil, apiErr(kind, 0, kind.Error())
		}}
		svc, store := newTestAuthService(api)
		_ = store.Save(context.Background(), testUser(), "tok")
		svc.now = func() time.Time { return time.Now().Add(time.Hour) }

		if u := svc.GetCurrentUser(context.Background()); u != nil {
			t.Fatalf("expected nil on %v, got %+v", kind, u)
		}
	}
}

func TestAuthService_UpdateProfile_SendsOnlyChangedFields(t *testing.T) {
	var sent ports.ProfileUpdate
	api := &stubAPI{handle: func(method, path string, body any) (any, error) {
		if method != "PATCH" || path != "/user/profile" {
			t.Fatalf("unexpected call %s %s", method, path)
		}
		sent = body.(ports.ProfileUpdate)
		u := testUser()
		u.Name = "X"
		return map[string]any{"user": u}, nil
	}}
	svc, store := newTestAuthService(api)
	_ = store.Save(context.Background(), testUser(), "tok")

	name, email := "X", "asha@example.com"
	user, err := svc.UpdateProfile(context.Background(), ports.ProfileUpdate{Name: &name, Email: &email})
	if err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}
	if sent.Name == nil || *sent.Name != "X" {
		t.Fatalf("expected name to be sent, got %+v", sent)
	}
	if sent.Email != nil {
		t.Fatalf("expected unchanged email to be omitted, got %q", *sent.Email)
	}

	if user.Name != "X" || user.Email != "asha@example.com" || user.Phone != "9999999999" {
		t.Fatalf("unexpected returned user %+v", user)
	}
	sess, _ := store.Load(context.Background())
	if sess.User.Name != "X" || sess.User.Phone != "9999999999" || sess.Token != "tok" {
		t.Fatalf("expected cache replaced wholesale, got %+v", sess)
	}
}

func TestAuthService_UpdateProfile_NothingChanged(t *testing.T) {
	api := &stubAPI{}
	svc, store := newTestAuthService(api)
	_ = store.Save(context.Background(), testUser(), "tok")

	name := "Asha"
	user, err := svc.UpdateProfile(context.Background(), ports.ProfileUpdate{Name: &name})
	if err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}
	if user.ID != "u1" {
		t.Fatalf("expected cached user, got %+v", user)
	}
	if api.callCount() != 0 {
		t.Fatalf("expected no network call, got %d", api.callCount())
	}
}

func TestAuthService_UpdateProfile_RequiresSession(t *testing.T) {
	svc, _ := newTestAuthService(&stubAPI{})
	name := "X"
	if _, err := svc.UpdateProfile(context.Background(), ports.ProfileUpdate{Name: &name}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthService_UpdateProfile_NewPasswordNeedsCurrent(t *testing.T) {
	api := &stubAPI{}
	svc, store := newTestAuthService(api)
	_ = store.Save(context.Background(), testUser(), "tok")

	pw := "new-secret"
	_, err := svc.UpdateProfile(context.Background(), ports.ProfileUpdate{NewPassword: &pw})
	if !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
	if api.callCount() != 0 {
		t.Fatalf("expected no network call, got %d", api.callCount())
	}
}

func TestAuthService_Logout_ClearsEvenWhenUnreachable(t *testing.T) {
	var storeEmptyAtCall bool
	var svc *AuthService
	var store ports.SessionStore
	api := &stubAPI{handle: func(method, path string, _ any) (any, error) {
		sess, _ := store.Load(context.Background())
		storeEmptyAtCall = sess == nil
		return nil, apiErr(domain.ErrUnreachable, 0, "Network request failed. Please check your connection.")
	}}
	svc, store = newTestAuthService(api)
	_ = store.Save(context.Background(), testUser(), "tok-logout")

	svc.Logout(context.Background())

	if sess, _ := store.Load(context.Background()); sess != nil {
		t.Fatalf("expected store cleared, got %+v", sess)
	}
	if !storeEmptyAtCall {
		t.Fatalf("expected store to be cleared before notifying the backend")
	}
	call := api.lastCall()
	if call.path != "/auth/logout" || call.opts.Bearer != "tok-logout" {
		t.Fatalf("expected logout with captured token, got %+v", call)
	}
}

func TestAuthService_Logout_NoSessionSkipsBackend(t *testing.T) {
	api := &stubAPI{}
	svc, _ := newTestAuthService(api)
	svc.Logout(context.Background())
	if api.callCount() != 0 {
		t.Fatalf("expected no backend call, got %d", api.callCount())
	}
}

func TestAuthService_VerifyRole(t *testing.T) {
	api := &stubAPI{handle: func(method, path string, _ any) (any, error) {
		if path != "/auth/verify" {
			t.Fatalf("unexpected path %s", path)
		}
		return map[string]any{"role": "admin"}, nil
	}}
	svc, _ := newTestAuthService(api)

	role, err := svc.VerifyRole(context.Background(), "tok")
	if err != nil || role != domain.RoleAdmin {
		t.Fatalf("expected admin, got %q (err %v)", role, err)
	}
	if api.lastCall().opts.Bearer != "tok" {
		t.Fatalf("expected bearer override")
	}

	if _, err := svc.VerifyRole(context.Background(), ""); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for empty token, got %v", err)
	}
}
