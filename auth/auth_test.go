package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-relay/domain"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "MonMotDePasseTr0pSûr!"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("MauvaisMDP", hash)
	req.NoError(err)
	req.False(match)
}

func TestRegistrationValidation(t *testing.T) {
	req := require.New(t)
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr bool
	}{
		{"Valid request", RegisterRequest{"test@example.com", "alice", "ComplexPass123!"}, false},
		{"Invalid email", RegisterRequest{"notanemail", "alice", "ComplexPass123!"}, true},
		{"Username too short", RegisterRequest{"test@example.com", "a", "ComplexPass123!"}, true},
		{"Password too short", RegisterRequest{"test@example.com", "alice", "Short1!"}, true},
		{"Missing digit", RegisterRequest{"test@example.com", "alice", "NoDigitPassword!"}, true},
		{"Missing special char", RegisterRequest{"test@example.com", "alice", "NoSpecialChar123"}, true},
		{"Missing uppercase", RegisterRequest{"test@example.com", "alice", "nouppercase123!!"}, true},
		{"Password too long (edge case)", RegisterRequest{"test@example.com", "alice", strings.Repeat("a", 73)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegister(tt.req)
			if tt.wantErr {
				req.Error(err)
			} else {
				req.NoError(err)
			}
		})
	}
}

func TestGuestValidation(t *testing.T) {
	req := require.New(t)

	req.NoError(ValidateGuest(GuestRequest{Username: "alice"}))
	req.Error(ValidateGuest(GuestRequest{Username: ""}))
	req.Error(ValidateGuest(GuestRequest{Username: "a"}))
	req.Error(ValidateGuest(GuestRequest{Username: strings.Repeat("a", 33)}))
}

func TestTokenRoundTrip(t *testing.T) {
	req := require.New(t)
	manager := NewTokenManager("test-secret-do-not-reuse", "chat-relay", time.Hour)
	identity := domain.Identity{ID: "user-42", Username: "alice"}

	token, err := manager.Generate(identity)
	req.NoError(err)
	req.NotEmpty(token)

	got, err := manager.Validate(token)
	req.NoError(err)
	req.Equal(identity, got)
}

func TestTokenRejects_Wrong_Secret_And_Expiry(t *testing.T) {
	req := require.New(t)
	identity := domain.Identity{ID: "user-42", Username: "alice"}

	// Signed with one secret, validated with another
	token, err := NewTokenManager("secret-a", "chat-relay", time.Hour).Generate(identity)
	req.NoError(err)
	_, err = NewTokenManager("secret-b", "chat-relay", time.Hour).Validate(token)
	req.Error(err)

	// Already expired at validation time
	expired, err := NewTokenManager("secret-a", "chat-relay", -time.Minute).Generate(identity)
	req.NoError(err)
	_, err = NewTokenManager("secret-a", "chat-relay", time.Hour).Validate(expired)
	req.Error(err)
}

// BenchmarkHashPassword measures the CPU cost of one registration.
func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HashPassword("A-very-long-and-complex-password-for-bench-123!")
	}
}
