package services

import (
	"fmt"

	"github.com/google/uuid"

	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
)

type IAuthService interface {
	Register(email, username, password string) (Token, error)
	Login(email, password string) (Token, error)
	Guest(username string) (Token, error)
	Verify(token string) (domain.Identity, error)
}

type Token string

type AuthService struct {
	userRepository repositories.IUserRepository
	tokens         *auth.TokenManager
}

func NewAuthService(repo repositories.IUserRepository, tokens *auth.TokenManager) IAuthService {
	return &AuthService{userRepository: repo, tokens: tokens}
}

func (s *AuthService) Register(email, username, password string) (Token, error) {
	valReq := auth.RegisterRequest{
		Email:    email,
		Username: username,
		Password: password,
	}

	// 1. Validate business rules (email format, password complexity).
	// Checked before any expensive cryptographic operation.
	if err := auth.ValidateRegister(valReq); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}

	// 2. Hash the password using Argon2id.
	// Done here to keep the repository unaware of plain passwords.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing failed: %w", err)
	}

	// 3. Persist the account with the generated hash.
	userID, err := s.userRepository.CreateUser(email, username, hashedPassword)
	if err != nil {
		return "", err // Propagates ErrUserAlreadyExists if the email is taken
	}

	// 4. Issue the initial session token.
	token, err := s.tokens.Generate(domain.Identity{ID: userID, Username: username})
	if err != nil {
		return "", errors.ErrTokenGeneration
	}
	return Token(token), nil
}

func (s *AuthService) Login(email, password string) (Token, error) {
	// Generic error on every failure path to prevent user enumeration.
	user, err := s.userRepository.GetUserByEmail(email)
	if err != nil {
		return "", errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", errors.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(domain.Identity{ID: user.ID, Username: user.Username})
	if err != nil {
		return "", errors.ErrTokenGeneration
	}
	return Token(token), nil
}

// Guest issues a short-lived identity without persisting anything.
func (s *AuthService) Guest(username string) (Token, error) {
	if err := auth.ValidateGuest(auth.GuestRequest{Username: username}); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidUsername, err)
	}
	token, err := s.tokens.Generate(domain.Identity{ID: uuid.NewString(), Username: username})
	if err != nil {
		return "", errors.ErrTokenGeneration
	}
	return Token(token), nil
}

// Verify validates a bearer credential and returns the identity it
// carries. Every failure is reported as ErrUnauthorized.
func (s *AuthService) Verify(token string) (domain.Identity, error) {
	identity, err := s.tokens.Validate(token)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", errors.ErrUnauthorized, err)
	}
	return identity, nil
}
