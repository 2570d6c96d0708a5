package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fleema/fleetcore/internal/domain"
	"github.com/fleema/fleetcore/internal/store"
	"go.uber.org/zap"
)

// registerAttempts bounds retries when a concurrent registration claims the
// generated subdomain between the probe and the insert.
const registerAttempts = 3

const msgEmailExists = "A user with that email already exists."

// AuthService runs the session lifecycle: register, login, logout, profile
// and password change.
type AuthService struct {
	tx      domain.Transactor
	users   domain.UserStore
	tenants domain.TenantStore
	creds   *CredentialService
	metrics *AuthMetrics
	logger  *zap.Logger
}

func NewAuthService(
	tx domain.Transactor,
	users domain.UserStore,
	tenants domain.TenantStore,
	creds *CredentialService,
	metrics *AuthMetrics,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		tx:      tx,
		users:   users,
		tenants: tenants,
		creds:   creds,
		metrics: metrics,
		logger:  logger,
	}
}

// Session is the outcome of a successful register or login.
type Session struct {
	User   *domain.User
	Tenant *domain.Tenant
	Token  string
}

// Profile is a user with its tenant resolved.
type Profile struct {
	User   *domain.User
	Tenant *domain.Tenant
}

type RegisterInput struct {
	CompanyName string `json:"company_name" validate:"required,max=255"`
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required"`
	FirstName   string `json:"first_name" validate:"max=150"`
	LastName    string `json:"last_name" validate:"max=150"`
}

// Register creates a tenant and its first user (a tenant admin) in one
// transaction and issues the user's token.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (sess *Session, err error) {
	defer func() { s.metrics.observe("register", err) }()

	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.Email = domain.NormalizeEmail(in.Email)

	verr := validateStruct(in)
	if verr == nil {
		verr = &domain.ValidationError{}
	}
	if in.Password != "" {
		if problems := ValidatePassword(in.Password, in.Email, in.FirstName, in.LastName, in.CompanyName); len(problems) > 0 {
			verr.Add("password", strings.Join(problems, " "))
		}
	}
	if _, bad := verr.Fields["email"]; !bad {
		exists, err := s.users.EmailExists(ctx, in.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if exists {
			verr.Add("email", msgEmailExists)
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	for attempt := 1; ; attempt++ {
		sess, err = s.register(ctx, in, hash)
		if errors.Is(err, ErrSubdomainTaken) && attempt < registerAttempts {
			s.logger.Warn("subdomain claimed concurrently, retrying registration",
				zap.String("company_name", in.CompanyName), zap.Int("attempt", attempt))
			continue
		}
		break
	}
	if errors.Is(err, ErrSubdomainTaken) {
		return nil, domain.NewValidationError("company_name", "Could not allocate a subdomain for this company, please retry.")
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("tenant registered",
		zap.String("tenant_id", sess.Tenant.ID.String()),
		zap.String("subdomain", sess.Tenant.Subdomain),
		zap.String("user_id", sess.User.ID.String()),
	)
	return sess, nil
}

func (s *AuthService) register(ctx context.Context, in RegisterInput, hash string) (*Session, error) {
	var sess Session
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx domain.TxStores) error {
		tenant, err := createTenant(ctx, tx.Tenants, CreateTenantInput{Name: in.CompanyName, Email: in.Email})
		if err != nil {
			return err
		}

		user := &domain.User{
			Email:        in.Email,
			PasswordHash: hash,
			Role:         domain.RoleTenantAdmin,
			TenantID:     &tenant.ID,
			FirstName:    in.FirstName,
			LastName:     in.LastName,
			IsActive:     true,
		}
		if err := tx.Users.Create(ctx, user); err != nil {
			if store.IsConstraint(err, store.ConstraintUserEmail) {
				return domain.NewValidationError("email", msgEmailExists)
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		token, err := s.creds.withStores(tx.Tokens, tx.Users).Issue(ctx, user.ID)
		if err != nil {
			return err
		}

		sess = Session{User: user, Tenant: tenant, Token: token}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// Login verifies credentials and returns the user's token. Unknown emails,
// wrong passwords and inactive accounts all fail with ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (sess *Session, err error) {
	defer func() { s.metrics.observe("login", err) }()

	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("failed to load user: %w", err)
		}
		CheckPassword(string(dummyHash), password)
		s.logger.Info("login failed", zap.String("reason", "unknown_email"))
		return nil, domain.ErrInvalidCredentials
	}
	if !CheckPassword(user.PasswordHash, password) {
		s.logger.Info("login failed", zap.String("reason", "bad_password"), zap.String("user_id", user.ID.String()))
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		s.logger.Info("login failed", zap.String("reason", "inactive"), zap.String("user_id", user.ID.String()))
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.creds.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	tenant, err := s.tenantOf(ctx, user)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Tenant: tenant, Token: token}, nil
}

// Logout revokes the user's token. It succeeds when no token exists.
func (s *AuthService) Logout(ctx context.Context, user *domain.User) (err error) {
	defer func() { s.metrics.observe("logout", err) }()

	if user == nil {
		return domain.ErrUnauthenticated
	}
	return s.creds.Revoke(ctx, user.ID)
}

func (s *AuthService) Profile(ctx context.Context, user *domain.User) (*Profile, error) {
	if user == nil {
		return nil, domain.ErrUnauthenticated
	}
	tenant, err := s.tenantOf(ctx, user)
	if err != nil {
		return nil, err
	}
	return &Profile{User: user, Tenant: tenant}, nil
}

// UpdateProfile writes the present fields of upd. Email, role and tenant
// cannot be changed here.
func (s *AuthService) UpdateProfile(ctx context.Context, user *domain.User, upd domain.ProfileUpdate) (*Profile, error) {
	if user == nil {
		return nil, domain.ErrUnauthenticated
	}
	if verr := validateStruct(upd); verr != nil {
		return nil, verr
	}

	updated := *user
	upd.Apply(&updated)
	if err := s.users.UpdateProfile(ctx, &updated); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return s.Profile(ctx, &updated)
}

type ChangePasswordInput struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// ChangePassword checks the old password, stores the new hash and rotates
// the token in one transaction. It returns the new token.
func (s *AuthService) ChangePassword(ctx context.Context, user *domain.User, in ChangePasswordInput) (token string, err error) {
	defer func() { s.metrics.observe("change_password", err) }()

	if user == nil {
		return "", domain.ErrUnauthenticated
	}
	if verr := validateStruct(in); verr != nil {
		return "", verr
	}
	if !CheckPassword(user.PasswordHash, in.OldPassword) {
		return "", domain.NewValidationError("old_password", "Incorrect password.")
	}
	attrs := []string{user.Email, user.FirstName, user.LastName}
	tenant, err := s.tenantOf(ctx, user)
	if err != nil {
		return "", err
	}
	if tenant != nil {
		attrs = append(attrs, tenant.Name)
	}
	if problems := ValidatePassword(in.NewPassword, attrs...); len(problems) > 0 {
		return "", domain.NewValidationError("new_password", strings.Join(problems, " "))
	}

	hash, err := HashPassword(in.NewPassword)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx domain.TxStores) error {
		if err := tx.Users.UpdatePassword(ctx, user.ID, hash); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		token, err = s.creds.withStores(tx.Tokens, tx.Users).Rotate(ctx, user.ID)
		return err
	})
	if err != nil {
		return "", err
	}
	user.PasswordHash = hash
	return token, nil
}

func (s *AuthService) tenantOf(ctx context.Context, user *domain.User) (*domain.Tenant, error) {
	if user.TenantID == nil {
		return nil, nil
	}
	t, err := s.tenants.GetByID(ctx, *user.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant: %w", err)
	}
	return t, nil
}
