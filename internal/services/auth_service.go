package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"cartscout/internal/auth"
	"cartscout/internal/domain"
	"cartscout/internal/repos"
	"cartscout/internal/validate"
)

var errBadCreds = Unauthorized("Invalid email or password")

type AuthService struct {
	Users  *repos.UserRepo
	Tokens *repos.TokenRepo
	Issuer *auth.Issuer
}

func NewAuthService(u *repos.UserRepo, t *repos.TokenRepo, iss *auth.Issuer) *AuthService {
	return &AuthService{Users: u, Tokens: t, Issuer: iss}
}

func (s *AuthService) Register(email, password string) (domain.Session, error) {
	email, ok := validate.Email(email)
	if !ok {
		return domain.Session{}, Validation("Invalid email")
	}
	if !validate.Password(password) {
		return domain.Session{}, Validation("Password must be 8 to 128 characters")
	}
	if _, err := s.Users.ByEmail(email); err == nil {
		return domain.Session{}, Conflict("An account with this email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Session{}, fmt.Errorf("hash password: %w", err)
	}
	u := domain.User{ID: uuid.NewString(), Email: email, Hash: string(hash), CreatedAt: domain.Now()}
	if err := s.Users.Create(u); err != nil {
		return domain.Session{}, fmt.Errorf("create user: %w", err)
	}
	return s.session(u)
}

func (s *AuthService) Login(email, password string) (domain.Session, error) {
	email, ok := validate.Email(email)
	if !ok || password == "" || len(password) > 128 {
		return domain.Session{}, errBadCreds
	}
	u, err := s.Users.ByEmail(email)
	if err != nil {
		return domain.Session{}, errBadCreds
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return domain.Session{}, errBadCreds
	}
	return s.session(*u)
}

// Refresh rotates a refresh token: the presented one is spent and a new pair
// is issued.
func (s *AuthService) Refresh(refreshToken string) (domain.Session, error) {
	tok, ok := validate.RefreshToken(refreshToken)
	if !ok {
		return domain.Session{}, Validation("refreshToken is required")
	}
	if _, err := s.Issuer.VerifyRefresh(tok); err != nil {
		return domain.Session{}, Unauthorized("Refresh token expired or invalid")
	}
	userID, err := s.Tokens.Consume(auth.Hash(tok), domain.Now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, Unauthorized("Refresh token not found or expired")
		}
		return domain.Session{}, fmt.Errorf("consume refresh token: %w", err)
	}
	u, err := s.Users.ByID(userID)
	if err != nil {
		return domain.Session{}, notFoundOr(err, "User not found")
	}
	return s.session(*u)
}

func (s *AuthService) Me(userID string) (domain.User, error) {
	u, err := s.Users.ByID(userID)
	if err != nil {
		return domain.User{}, notFoundOr(err, "User not found")
	}
	return *u, nil
}

// PruneExpired removes refresh tokens past their expiry.
func (s *AuthService) PruneExpired() (int64, error) {
	return s.Tokens.PruneExpired(domain.Now())
}

func (s *AuthService) session(u domain.User) (domain.Session, error) {
	access, err := s.Issuer.Access(u.ID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, exp, err := s.Issuer.Refresh(u.ID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("sign refresh token: %w", err)
	}
	err = s.Tokens.Save(uuid.NewString(), u.ID, auth.Hash(refresh), exp.UTC().Format(domain.TimeLayout), domain.Now())
	if err != nil {
		return domain.Session{}, fmt.Errorf("store refresh token: %w", err)
	}
	return domain.Session{
		User:         domain.User{ID: u.ID, Email: u.Email},
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.Issuer.AccessTTL() / time.Second),
	}, nil
}
