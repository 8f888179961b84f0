package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/AbogiC/kostum-resonanz/internal/apperror"
	"github.com/AbogiC/kostum-resonanz/internal/auth"
	"github.com/AbogiC/kostum-resonanz/internal/database"
	"github.com/AbogiC/kostum-resonanz/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	minPasswordLength = 6
	// bcrypt ignores everything past 72 bytes.
	maxPasswordLength = 72
)

var errInvalidLogin = apperror.New(apperror.KindInvalidCredentials, "invalid email or password")

// AccountServiceProvider defines the interface for account services.
type AccountServiceProvider interface {
	Register(ctx context.Context, email, password, name string) (models.TokenResponse, error)
	Login(ctx context.Context, email, password string) (models.TokenResponse, error)
	ResolveCurrentAccount(ctx context.Context, token string) (models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (models.Account, error)
	EnsureAdmin(ctx context.Context, email, password, name string) error
}

// AccountService registers and authenticates accounts and resolves bearer
// tokens to the accounts they name.
type AccountService struct {
	db     *sql.DB
	tokens *auth.TokenService
	events EventServiceProvider
	now    func() time.Time
}

// NewAccountService creates a new AccountService.
func NewAccountService(db *sql.DB, tokens *auth.TokenService, events EventServiceProvider) *AccountService {
	return &AccountService{db: db, tokens: tokens, events: events, now: time.Now}
}

func scanAccount(scanner interface{ Scan(...interface{}) error }) (models.Account, error) {
	var (
		account   models.Account
		role      string
		createdAt string
	)
	if err := scanner.Scan(&account.Email, &account.PasswordHash, &account.Name, &role, &createdAt); err != nil {
		return models.Account{}, err
	}
	account.Role = models.Role(role)
	t, err := database.ParseTime(createdAt)
	if err != nil {
		return models.Account{}, err
	}
	account.CreatedAt = t
	return account, nil
}

// getAccount loads the full record including the credential hash.
func (s *AccountService) getAccount(ctx context.Context, email string) (models.Account, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT email, password_hash, name, role, created_at FROM accounts WHERE email = ?", email)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Account{}, apperror.NotFound("account not found")
		}
		return models.Account{}, fmt.Errorf("query account: %w", err)
	}
	return account, nil
}

// GetAccountByEmail retrieves an account without its credential hash.
func (s *AccountService) GetAccountByEmail(ctx context.Context, email string) (models.Account, error) {
	account, err := s.getAccount(ctx, email)
	if err != nil {
		return models.Account{}, err
	}
	account.PasswordHash = ""
	return account, nil
}

func validateRegistration(email, password, name string) error {
	if email == "" {
		return apperror.InvalidArgument("email is required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return apperror.InvalidArgument("email is not a valid address")
	}
	if len(password) < minPasswordLength {
		return apperror.InvalidArgument(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if len(password) > maxPasswordLength {
		return apperror.InvalidArgument(fmt.Sprintf("password must be at most %d bytes", maxPasswordLength))
	}
	if name == "" {
		return apperror.InvalidArgument("name is required")
	}
	return nil
}

// Register creates a user account and returns a token for it.
func (s *AccountService) Register(ctx context.Context, email, password, name string) (models.TokenResponse, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if err := validateRegistration(email, password, name); err != nil {
		return models.TokenResponse{}, err
	}

	if _, err := s.getAccount(ctx, email); err == nil {
		return models.TokenResponse{}, apperror.Conflict("email already registered")
	} else if !apperror.Is(err, apperror.KindNotFound) {
		return models.TokenResponse{}, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.TokenResponse{}, err
	}

	account := models.Account{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         models.RoleUser,
		CreatedAt:    s.now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO accounts (email, password_hash, name, role, created_at) VALUES (?, ?, ?, ?, ?)",
		account.Email, account.PasswordHash, account.Name, string(account.Role), database.FormatTime(account.CreatedAt),
	)
	if err != nil {
		// Lost a race with a concurrent registration of the same email.
		if database.IsConstraintViolation(err) {
			return models.TokenResponse{}, apperror.Conflict("email already registered")
		}
		return models.TokenResponse{}, fmt.Errorf("insert account: %w", err)
	}

	recordEvent(ctx, s.events, models.Event{
		Type:       EventAccountRegister,
		Message:    fmt.Sprintf("Account '%s' registered", account.Email),
		ActorEmail: account.Email,
	})
	log.Info().Str("email", account.Email).Msg("Account registered")

	return s.tokenResponse(account)
}

// Login checks credentials and returns a fresh token. Unknown email and wrong
// password fail identically.
func (s *AccountService) Login(ctx context.Context, email, password string) (models.TokenResponse, error) {
	account, err := s.getAccount(ctx, strings.TrimSpace(email))
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return models.TokenResponse{}, errInvalidLogin
		}
		return models.TokenResponse{}, err
	}
	if !auth.CheckPassword(password, account.PasswordHash) {
		return models.TokenResponse{}, errInvalidLogin
	}
	return s.tokenResponse(account)
}

// ResolveCurrentAccount verifies token and loads the account named by its
// subject. The lookup hits storage on every call so deleted or demoted
// accounts lose access immediately.
func (s *AccountService) ResolveCurrentAccount(ctx context.Context, token string) (models.Account, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return models.Account{}, apperror.Wrap(apperror.KindUnauthenticated, "invalid credentials", err)
	}
	account, err := s.GetAccountByEmail(ctx, claims.Subject)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return models.Account{}, apperror.Unauthenticated("account not found")
		}
		return models.Account{}, err
	}
	return account, nil
}

// EnsureAdmin creates the account as an admin, or promotes an existing one.
// The password of an existing account is left untouched.
func (s *AccountService) EnsureAdmin(ctx context.Context, email, password, name string) error {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)

	existing, err := s.getAccount(ctx, email)
	switch {
	case err == nil:
		if existing.Role == models.RoleAdmin {
			return nil
		}
		if _, err := s.db.ExecContext(ctx, "UPDATE accounts SET role = ? WHERE email = ?", string(models.RoleAdmin), email); err != nil {
			return fmt.Errorf("promote account: %w", err)
		}
		log.Info().Str("email", email).Msg("Promoted account to admin")
		return nil
	case !apperror.Is(err, apperror.KindNotFound):
		return err
	}

	if err := validateRegistration(email, password, name); err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO accounts (email, password_hash, name, role, created_at) VALUES (?, ?, ?, ?, ?)",
		email, hash, name, string(models.RoleAdmin), database.FormatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("insert admin account: %w", err)
	}
	log.Info().Str("email", email).Msg("Created admin account")
	return nil
}

func (s *AccountService) tokenResponse(account models.Account) (models.TokenResponse, error) {
	token, err := s.tokens.Issue(account.Email)
	if err != nil {
		return models.TokenResponse{}, fmt.Errorf("issue token: %w", err)
	}
	return models.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        account.View(),
	}, nil
}
