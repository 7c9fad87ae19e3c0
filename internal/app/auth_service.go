package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quizhub/internal/auth"
	"quizhub/internal/domain"
)

// Session is what a successful register or login hands back to the client.
type Session struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// AuthService registers accounts, issues credentials and resolves them to viewers.
type AuthService struct {
	users  UserRepository
	tokens *auth.TokenIssuer
	log    *zap.Logger
	now    func() time.Time
}

func NewAuthService(users UserRepository, tokens *auth.TokenIssuer, log *zap.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, log: log, now: time.Now}
}

// Register creates a user with the default role and returns a session for it.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (Session, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if err := domain.ValidateRegistration(username, email, password); err != nil {
		return Session{}, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return Session{}, err
	}
	now := s.now()
	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return Session{}, err
	}
	s.log.Info("user registered", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return s.session(user)
}

// Login checks the password for email. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Session{}, domain.Invalid("", "email and password are required")
	}
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return Session{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return Session{}, domain.ErrInvalidCredentials
	}
	return s.session(user)
}

// Authenticate resolves a bearer token to a viewer, reading the role from the store so
// role changes apply to tokens already issued.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Viewer, error) {
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return domain.Viewer{}, domain.ErrUnauthorized
	}
	user, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Viewer{}, domain.ErrUnauthorized
	}
	if err != nil {
		return domain.Viewer{}, err
	}
	return domain.Viewer{UserID: user.ID, Role: user.Role}, nil
}

// Me returns the caller's own profile.
func (s *AuthService) Me(ctx context.Context, viewer domain.Viewer) (domain.User, error) {
	if viewer.Anonymous() {
		return domain.User{}, domain.ErrUnauthorized
	}
	return s.users.GetUser(ctx, viewer.UserID)
}

func (s *AuthService) session(user domain.User) (Session, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: user}, nil
}
