package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/courrier-mf/courrier/internal/config"
	"github.com/courrier-mf/courrier/internal/models"
	"github.com/courrier-mf/courrier/pkg/logger"
	"github.com/courrier-mf/courrier/pkg/metrics"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid user input")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

// MinPasswordLength applies to passwords chosen by the user.
const MinPasswordLength = 8

// CreateInput carries the operator-supplied fields of a new user.
type CreateInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// Service encapsulates user-related business logic
type Service struct {
	repo UserRepository
	cost int
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r, cost: bcrypt.DefaultCost}
}

func (s *Service) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func checkNames(first, last string) error {
	if strings.TrimSpace(first) == "" || strings.TrimSpace(last) == "" {
		return fmt.Errorf("%w: first and last name are required", ErrInvalidInput)
	}
	return nil
}

// Create registers a user with a derived username and a generated password.
// The plaintext password is returned once and never stored.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.User, string, error) {
	if err := checkNames(in.FirstName, in.LastName); err != nil {
		return nil, "", err
	}
	role := in.Role
	if role == "" {
		role = models.RoleOperator
	}
	if !models.ValidRole(role) {
		return nil, "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	password, err := GeneratePassword()
	if err != nil {
		return nil, "", err
	}
	u, err := s.create(ctx, in.FirstName, in.LastName, in.Email, role, password)
	if err != nil {
		return nil, "", err
	}
	return u, password, nil
}

func (s *Service) create(ctx context.Context, first, last, email, role, password string) (*models.User, error) {
	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Username:     GenerateUsername(first, last),
		FirstName:    strings.TrimSpace(first),
		LastName:     strings.TrimSpace(last),
		Email:        strings.TrimSpace(email),
		Role:         role,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	metrics.UsersCreated.Inc()
	logger.Infof("user %s created (role=%s)", u.Username, u.Role)
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.User, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*models.User, error) {
	return s.repo.List(ctx)
}

// Update edits the names and email. The username follows the new names.
func (s *Service) Update(ctx context.Context, id, firstName, lastName, email string) (*models.User, error) {
	return s.Edit(ctx, id, CreateInput{FirstName: firstName, LastName: lastName, Email: email})
}

// Edit applies an administrator's changes in one write. An empty Role keeps
// the current one; every field is checked before anything is stored.
func (s *Service) Edit(ctx context.Context, id string, in CreateInput) (*models.User, error) {
	if err := checkNames(in.FirstName, in.LastName); err != nil {
		return nil, err
	}
	if in.Role != "" && !models.ValidRole(in.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
	}
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u.FirstName = strings.TrimSpace(in.FirstName)
	u.LastName = strings.TrimSpace(in.LastName)
	u.Email = strings.TrimSpace(in.Email)
	u.Username = GenerateUsername(u.FirstName, u.LastName)
	if in.Role != "" {
		u.Role = in.Role
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ResetPassword replaces the password with a generated one and returns it.
func (s *Service) ResetPassword(ctx context.Context, id string) (string, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	password, err := GeneratePassword()
	if err != nil {
		return "", err
	}
	if u.PasswordHash, err = s.hash(password); err != nil {
		return "", err
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return "", err
	}
	logger.Infof("password reset for user %s", u.Username)
	return password, nil
}

// ChangePassword sets a user-chosen password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, id, current, next string) error {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return ErrInvalidCredentials
	}
	if len(next) < MinPasswordLength {
		return ErrWeakPassword
	}
	if u.PasswordHash, err = s.hash(next); err != nil {
		return err
	}
	return s.repo.Update(ctx, u)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Authenticate checks a username or email against the stored hash.
func (s *Service) Authenticate(ctx context.Context, login, password string) (*models.User, error) {
	login = strings.TrimSpace(login)
	u, err := s.repo.GetByUsername(ctx, strings.ToLower(login))
	if errors.Is(err, ErrNotFound) {
		u, err = s.repo.GetByEmail(ctx, login)
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.Logins.WithLabelValues("failure").Inc()
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		metrics.Logins.WithLabelValues("failure").Inc()
		return nil, ErrInvalidCredentials
	}
	metrics.Logins.WithLabelValues("success").Inc()
	return u, nil
}

// FromClaims resolves the user behind verified token claims. Local tokens carry
// the user id in "uid"; OIDC subjects are provisioned as operators on first use.
func (s *Service) FromClaims(ctx context.Context, claims map[string]interface{}) (*models.User, error) {
	if uid, _ := claims["uid"].(string); uid != "" {
		return s.repo.Get(ctx, uid)
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrNotFound
	}
	u, err := s.repo.GetBySub(ctx, sub)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	first, _ := claims["given_name"].(string)
	last, _ := claims["family_name"].(string)
	if first == "" || last == "" {
		name, _ := claims["name"].(string)
		if parts := strings.Fields(name); len(parts) >= 2 {
			first, last = parts[0], strings.Join(parts[1:], " ")
		}
	}
	username := sub
	switch pref, _ := claims["preferred_username"].(string); {
	case first != "" && last != "":
		username = GenerateUsername(first, last)
	case stripSpace(pref) != "":
		username = strings.ToLower(stripSpace(pref))
	}
	email, _ := claims["email"].(string)
	u = &models.User{
		Sub:       sub,
		Username:  username,
		FirstName: first,
		LastName:  last,
		Email:     email,
		Role:      models.RoleOperator,
	}
	err = s.repo.Create(ctx, u)
	if errors.Is(err, ErrUsernameTaken) && u.Username != sub {
		// a local account already owns the derived name
		u.Username = sub
		err = s.repo.Create(ctx, u)
	}
	if err != nil {
		return nil, err
	}
	metrics.UsersCreated.Inc()
	logger.Infof("provisioned user %s from OIDC subject", u.Username)
	return u, nil
}

// EnsureAdmin creates the configured administrator unless a user with that
// email already exists. It is a no-op when no admin email or password is set.
func (s *Service) EnsureAdmin(ctx context.Context, cfg config.AdminConfig) (*models.User, error) {
	if cfg.Email == "" || cfg.Password == "" {
		return nil, nil
	}
	u, err := s.repo.GetByEmail(ctx, cfg.Email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return s.create(ctx, cfg.FirstName, cfg.LastName, cfg.Email, models.RoleAdmin, cfg.Password)
}
