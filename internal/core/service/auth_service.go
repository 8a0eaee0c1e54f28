package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/cbs/consultation-web/internal/core/domain"
	"github.com/cbs/consultation-web/internal/core/ports"
	"github.com/cbs/consultation-web/internal/pkg/validation"
)

const (
	defaultProfileTTL = 5 * time.Minute
	logoutTimeout     = 3 * time.Second
)

// authResponse is the body of /auth/login and /auth/register.
type authResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// profileResponse is the body of GET and PATCH /user/profile.
type profileResponse struct {
	User *domain.User `json:"user"`
}

type verifyResponse struct {
	Role string       `json:"role"`
	User *domain.User `json:"user"`
}

// AuthService implements ports.AuthService for one browser context.
type AuthService struct {
	api        ports.APIClient
	store      ports.SessionStore
	validate   *validator.Validate
	profileTTL time.Duration
	log        zerolog.Logger
	now        func() time.Time
}

var (
	_ ports.AuthService   = (*AuthService)(nil)
	_ ports.TokenVerifier = (*AuthService)(nil)
)

// NewAuthService binds the service to api and store. profileTTL bounds how
// long a cached user is served without asking the backend again.
func NewAuthService(api ports.APIClient, store ports.SessionStore, validate *validator.Validate, profileTTL time.Duration, log zerolog.Logger) *AuthService {
	if profileTTL <= 0 {
		profileTTL = defaultProfileTTL
	}
	if validate == nil {
		validate = validation.New()
	}
	return &AuthService{
		api:        api,
		store:      store,
		validate:   validate,
		profileTTL: profileTTL,
		log:        log.With().Str("component", "auth_service").Logger(),
		now:        time.Now,
	}
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, &domain.APIError{Kind: domain.ErrMissingCredentials, Message: "Email and password are required", Local: true}
	}

	var resp authResponse
	err := s.api.Post(ctx, "/auth/login", map[string]string{"email": email, "password": password}, &resp)
	return s.establish(ctx, "login", resp, err)
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)

	if err := s.validate.Struct(in); err != nil {
		return nil, registerValidationError(err)
	}

	var resp authResponse
	err := s.api.Post(ctx, "/auth/register", in, &resp)
	return s.establish(ctx, "register", resp, err)
}

// establish validates an auth response and persists it. On any failure the
// store is left empty.
func (s *AuthService) establish(ctx context.Context, op string, resp authResponse, err error) (*domain.User, error) {
	if err == nil {
		switch {
		case resp.User == nil:
			err = domain.Invalid("%s response is missing the user", op)
		case strings.TrimSpace(resp.Token) == "":
			err = domain.Invalid("%s response is missing the token", op)
		default:
			err = s.store.Save(ctx, resp.User, resp.Token)
		}
	}
	if err != nil {
		s.discard(ctx)
		return nil, withFieldContext(err)
	}

	s.log.Info().Str("op", op).Str("user_id", resp.User.ID).Msg("session established")
	return resp.User.Clone(), nil
}

func (s *AuthService) GetCurrentUser(ctx context.Context) *domain.User {
	sess, err := s.store.Load(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("load session")
		return nil
	}
	if sess == nil || sess.Token == "" {
		return nil
	}
	if sess.Fresh(s.now(), s.profileTTL) {
		return sess.User.Clone()
	}

	var resp profileResponse
	if err := s.api.Get(ctx, "/user/profile", &resp); err != nil {
		s.log.Debug().Err(err).Msg("refresh profile")
		return nil
	}
	if resp.User == nil {
		s.log.Warn().Msg("profile response is missing the user")
		return nil
	}
	if err := s.store.Save(ctx, resp.User, sess.Token); err != nil {
		s.log.Warn().Err(err).Msg("cache refreshed profile")
	}
	return resp.User.Clone()
}

func (s *AuthService) UpdateProfile(ctx context.Context, in ports.ProfileUpdate) (*domain.User, error) {
	sess, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.Token == "" {
		return nil, &domain.APIError{Kind: domain.ErrUnauthorized, Status: 401, Message: "Not logged in"}
	}

	if in.NewPassword != nil && *in.NewPassword != "" && (in.CurrentPassword == nil || *in.CurrentPassword == "") {
		return nil, domain.NewValidationError("Current password is required", map[string]string{
			"currentPassword": "Current password is required to set a new password",
		})
	}

	changes := changedFields(sess.User, in)
	if changes.Empty() {
		if sess.User != nil {
			return sess.User.Clone(), nil
		}
		return s.GetCurrentUser(ctx), nil
	}

	var resp profileResponse
	if err := s.api.Patch(ctx, "/user/profile", changes, &resp); err != nil {
		return nil, withFieldContext(err)
	}
	if resp.User == nil {
		return nil, domain.Invalid("profile response is missing the user")
	}
	if err := s.store.Save(ctx, resp.User, sess.Token); err != nil {
		return nil, err
	}
	return resp.User.Clone(), nil
}

func (s *AuthService) Logout(ctx context.Context) {
	var token string
	if sess, err := s.store.Load(ctx); err == nil && sess != nil {
		token = sess.Token
	}

	s.discard(ctx)

	if token == "" {
		return
	}
	if err := s.api.Post(ctx, "/auth/logout", nil, nil,
		ports.WithBearer(token), ports.WithTimeout(logoutTimeout)); err != nil {
		s.log.Warn().Err(err).Msg("notify backend of logout")
	}
}

// VerifyRole asks the backend who token belongs to.
func (s *AuthService) VerifyRole(ctx context.Context, token string) (string, error) {
	return verifyRole(ctx, s.api, token)
}

// RoleVerifier resolves roles through the backend without a bound session.
type RoleVerifier struct {
	api ports.APIClient
}

var _ ports.TokenVerifier = (*RoleVerifier)(nil)

func NewRoleVerifier(api ports.APIClient) *RoleVerifier {
	return &RoleVerifier{api: api}
}

func (v *RoleVerifier) VerifyRole(ctx context.Context, token string) (string, error) {
	return verifyRole(ctx, v.api, token)
}

func verifyRole(ctx context.Context, api ports.APIClient, token string) (string, error) {
	if token == "" {
		return "", &domain.APIError{Kind: domain.ErrUnauthorized, Status: 401, Message: "no credential"}
	}
	var resp verifyResponse
	if err := api.Get(ctx, "/auth/verify", &resp, ports.WithBearer(token)); err != nil {
		return "", err
	}
	role := resp.Role
	if role == "" && resp.User != nil {
		role = resp.User.Role
	}
	if role == "" {
		return "", domain.Invalid("verify response is missing the role")
	}
	return role, nil
}

func (s *AuthService) discard(ctx context.Context) {
	if err := s.store.Clear(context.WithoutCancel(ctx)); err != nil {
		s.log.Error().Err(err).Msg("clear session")
	}
}

// changedFields keeps only the entries that differ from the cached user.
// Password fields are always forwarded when set.
func changedFields(cached *domain.User, in ports.ProfileUpdate) ports.ProfileUpdate {
	var cur domain.User
	if cached != nil {
		cur = *cached
	}
	out := ports.ProfileUpdate{
		Name:  changed(in.Name, cur.Name),
		Email: changed(in.Email, cur.Email),
		Phone: changed(in.Phone, cur.Phone),
	}
	if in.NewPassword != nil && *in.NewPassword != "" {
		out.CurrentPassword = in.CurrentPassword
		out.NewPassword = in.NewPassword
	}
	return out
}

func changed(v *string, current string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == current {
		return nil
	}
	return &t
}

// withFieldContext attaches a field to validation failures that only name
// it in the message.
func withFieldContext(err error) error {
	ae := domain.AsAPIError(err)
	if ae == nil || ae.Kind != domain.ErrValidationFailed || len(ae.Fields) > 0 {
		return err
	}
	if strings.Contains(strings.ToLower(ae.Message), "email") {
		ae.Fields = map[string]string{"email": ae.Message}
	}
	return err
}

func registerValidationError(err error) error {
	msg := "Please fill in all required fields"
	fields := validation.Fields(err)
	if fields == nil {
		msg = "Invalid registration details"
	}
	ve := domain.NewValidationError(msg, fields)
	ve.Local = true
	return ve
}
