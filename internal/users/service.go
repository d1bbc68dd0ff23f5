package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/MarcoPoloResearchLab/creatordesk/internal/auth"
	"github.com/MarcoPoloResearchLab/creatordesk/internal/serviceerr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrMissingCredentials indicates that username or password was empty.
	ErrMissingCredentials = errors.New("users: username and password required")
	// ErrUsernameTaken indicates that the username is already registered.
	ErrUsernameTaken = errors.New("users: username already exists")
	// ErrInvalidCredentials indicates an unknown username or a wrong password.
	ErrInvalidCredentials = errors.New("users: invalid username or password")

	errMissingDatabase = errors.New("database handle is required")
	errMissingHasher   = errors.New("password hasher is required")
)

const (
	opRegister     = "users.register"
	opAuthenticate = "users.authenticate"
)

// PasswordHasher hashes new passwords and verifies stored hashes.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// ServiceConfig describes the dependencies required for account management.
type ServiceConfig struct {
	Database *gorm.DB
	Hasher   PasswordHasher
	Logger   *zap.Logger
}

// Service registers and authenticates users.
type Service struct {
	db     *gorm.DB
	hasher PasswordHasher
	logger *zap.Logger
}

// NewService constructs the account service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: %w", errMissingDatabase)
	}
	if cfg.Hasher == nil {
		return nil, fmt.Errorf("users: %w", errMissingHasher)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: cfg.Database, hasher: cfg.Hasher, logger: logger}, nil
}

// Registration carries the fields of a new account.
type Registration struct {
	FirstName string
	LastName  string
	Username  string
	Password  string
}

// Register creates an account with a salted password hash.
func (s *Service) Register(ctx context.Context, registration Registration) (User, error) {
	if s.db == nil {
		return User{}, serviceerr.New(opRegister, "missing_database", errMissingDatabase)
	}
	username := normalize(registration.Username)
	if username == "" || registration.Password == "" {
		return User{}, serviceerr.New(opRegister, "missing_credentials", ErrMissingCredentials)
	}

	var existing User
	err := s.db.WithContext(ctx).Where("username = ?", username).Take(&existing).Error
	if err == nil {
		return User{}, serviceerr.New(opRegister, "username_taken", ErrUsernameTaken)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("users service error", zap.String("operation", opRegister), zap.String("reason", "lookup_failed"), zap.Error(err))
		return User{}, serviceerr.New(opRegister, "lookup_failed", err)
	}

	hash, err := s.hasher.Hash(registration.Password)
	if err != nil {
		return User{}, serviceerr.New(opRegister, "hash_failed", err)
	}

	user := User{
		FirstName:    normalize(registration.FirstName),
		LastName:     normalize(registration.LastName),
		Username:     username,
		PasswordHash: hash,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		s.logger.Error("users service error", zap.String("operation", opRegister), zap.String("reason", "insert_failed"), zap.Error(err))
		return User{}, serviceerr.New(opRegister, "insert_failed", err)
	}
	s.logger.Info("user registered", zap.String("username", username))
	return user, nil
}

// Authenticate returns the account when password matches its stored hash.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	if s.db == nil {
		return User{}, serviceerr.New(opAuthenticate, "missing_database", errMissingDatabase)
	}
	username = normalize(username)
	if username == "" || password == "" {
		return User{}, serviceerr.New(opAuthenticate, "invalid_credentials", ErrInvalidCredentials)
	}

	var user User
	err := s.db.WithContext(ctx).Where("username = ?", username).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, serviceerr.New(opAuthenticate, "invalid_credentials", ErrInvalidCredentials)
	}
	if err != nil {
		s.logger.Error("users service error", zap.String("operation", opAuthenticate), zap.String("reason", "lookup_failed"), zap.Error(err))
		return User{}, serviceerr.New(opAuthenticate, "lookup_failed", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return User{}, serviceerr.New(opAuthenticate, "invalid_credentials", ErrInvalidCredentials)
		}
		return User{}, serviceerr.New(opAuthenticate, "compare_failed", err)
	}
	return user, nil
}
