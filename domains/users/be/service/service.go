package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-gacha/platform/go/auth"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/problems"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/tenant"
)

// Login kinds reported to the Recorder.
const (
	LoginMaster = "master"
	LoginTenant = "tenant"
)

// Store is the persistence surface used by the users service.
type Store interface {
	GetTenantBySlug(ctx context.Context, slug string) (persistence.Tenant, error)
	CreateUser(ctx context.Context, params persistence.CreateUserParams) (persistence.User, error)
	GetUserByUsername(ctx context.Context, username string) (persistence.User, error)
	GetUserByID(ctx context.Context, id int64) (persistence.User, error)
	UpdateUser(ctx context.Context, id int64, update persistence.UserUpdate) (persistence.User, error)
}

// Recorder receives failed login attempts.
type Recorder interface {
	LoginFailure(kind string)
}

// Config holds the credentials the service checks against.
type Config struct {
	MasterSecret string
	Hasher       auth.Hasher
	Recorder     Recorder
}

// Service defines the credential operations of the users domain.
type Service interface {
	MasterLogin(ctx context.Context, password string) error
	TenantLogin(ctx context.Context, slug, username, password string) (auth.TenantUser, error)
	ChangePassword(ctx context.Context, user auth.TenantUser, oldPassword, newPassword string) error
	CreateUser(ctx context.Context, tenantSlug, username, password string) (persistence.User, error)
	ResetPassword(ctx context.Context, username, newPassword string) error
}

type service struct {
	store    Store
	master   string
	hasher   auth.Hasher
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
}

// New constructs the users service.
func New(store Store, cfg Config, logger *zap.Logger) Service {
	if store == nil {
		panic("users store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		store:    store,
		master:   cfg.MasterSecret,
		hasher:   cfg.Hasher,
		recorder: cfg.Recorder,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *service) MasterLogin(_ context.Context, password string) error {
	if !auth.VerifyMasterSecret(s.master, password) {
		s.loginFailed(LoginMaster)
		return problems.ErrUnauthorized
	}
	return nil
}

// TenantLogin checks username and password against the tenant addressed by slug. Every
// failure returns the same error and spends a bcrypt comparison.
func (s *service) TenantLogin(ctx context.Context, slug, username, password string) (auth.TenantUser, error) {
	if !tenant.ValidSlug(slug) {
		return auth.TenantUser{}, problems.Invalid("slug", "invalid slug")
	}

	t, err := s.store.GetTenantBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return auth.TenantUser{}, s.rejectTenantLogin(password)
		}
		return auth.TenantUser{}, err
	}

	u, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return auth.TenantUser{}, s.rejectTenantLogin(password)
		}
		return auth.TenantUser{}, err
	}
	if u.TenantID != t.ID {
		return auth.TenantUser{}, s.rejectTenantLogin(password)
	}
	if !s.hasher.Compare(u.PasswordHash, password) {
		s.loginFailed(LoginTenant)
		return auth.TenantUser{}, problems.ErrUnauthorized
	}

	return auth.TenantUser{UserID: u.ID, TenantID: t.ID, Slug: t.Slug}, nil
}

func (s *service) rejectTenantLogin(password string) error {
	s.hasher.CompareDummy(password)
	s.loginFailed(LoginTenant)
	return problems.ErrUnauthorized
}

func (s *service) ChangePassword(ctx context.Context, user auth.TenantUser, oldPassword, newPassword string) error {
	if msg := passwordProblem(newPassword); msg != "" {
		return problems.Invalid("new_password", msg)
	}

	u, err := s.store.GetUserByID(ctx, user.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return problems.ErrUnauthorized
		}
		return err
	}
	if u.TenantID != user.TenantID {
		return problems.ErrUnauthorized
	}
	if !s.hasher.Compare(u.PasswordHash, oldPassword) {
		return problems.ErrUnauthorized
	}

	hash, err := s.hash("new_password", newPassword)
	if err != nil {
		return err
	}
	if _, err := s.store.UpdateUser(ctx, u.ID, persistence.UserUpdate{PasswordHash: &hash}); err != nil {
		return err
	}
	s.logger.Info("password changed", zap.Int64("user_id", u.ID), zap.String("tenant_slug", user.Slug))
	return nil
}

func (s *service) CreateUser(ctx context.Context, tenantSlug, username, password string) (persistence.User, error) {
	fields := problems.FieldErrors{}
	if !tenant.ValidSlug(tenantSlug) {
		fields.Add("tenant_slug", "invalid tenant slug")
	}
	username = strings.TrimSpace(username)
	if username == "" {
		fields.Add("username", "username is required")
	}
	if msg := passwordProblem(password); msg != "" {
		fields.Add("password", msg)
	}
	if err := fields.Err(); err != nil {
		return persistence.User{}, err
	}

	t, err := s.store.GetTenantBySlug(ctx, tenantSlug)
	if err != nil {
		return persistence.User{}, err
	}
	hash, err := s.hash("password", password)
	if err != nil {
		return persistence.User{}, err
	}

	u, err := s.store.CreateUser(ctx, persistence.CreateUserParams{
		TenantID:     t.ID,
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	})
	if err != nil {
		if errors.Is(err, persistence.ErrConflict) {
			return persistence.User{}, fmt.Errorf("username %q already exists: %w", username, err)
		}
		return persistence.User{}, err
	}
	s.logger.Info("user created", zap.Int64("user_id", u.ID), zap.String("tenant_slug", t.Slug))
	return u, nil
}

func (s *service) ResetPassword(ctx context.Context, username, newPassword string) error {
	fields := problems.FieldErrors{}
	username = strings.TrimSpace(username)
	if username == "" {
		fields.Add("username", "username is required")
	}
	if msg := passwordProblem(newPassword); msg != "" {
		fields.Add("new_password", msg)
	}
	if err := fields.Err(); err != nil {
		return err
	}

	u, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	hash, err := s.hash("new_password", newPassword)
	if err != nil {
		return err
	}
	if _, err := s.store.UpdateUser(ctx, u.ID, persistence.UserUpdate{PasswordHash: &hash}); err != nil {
		return err
	}
	s.logger.Info("password reset", zap.Int64("user_id", u.ID))
	return nil
}

func (s *service) hash(field, password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return "", problems.Invalid(field, "password is too long")
	}
	return hash, err
}

func (s *service) loginFailed(kind string) {
	if s.recorder != nil {
		s.recorder.LoginFailure(kind)
	}
}

func passwordProblem(password string) string {
	if len(password) < auth.MinPasswordLength {
		return fmt.Sprintf("password must be at least %d characters", auth.MinPasswordLength)
	}
	return ""
}
