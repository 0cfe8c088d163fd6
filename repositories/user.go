package repositories

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"chat-relay/errors"
)

type IUserRepository interface {
	CreateUser(email, username, hashedPassword string) (string, error)
	GetUserByEmail(email string) (User, error)
}

// UserRepository stores registered accounts in BadgerDB, keyed by email.
type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

// User is the repository-level representation of an account.
// The plain password never reaches this layer.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

func userKey(email string) []byte {
	return []byte("user:" + email)
}

// CreateUser persists a new account and returns its generated ID.
// The existence check and the write share one transaction, so two
// concurrent registrations of the same email cannot both succeed.
func (u UserRepository) CreateUser(email, username, hashedPassword string) (string, error) {
	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: hashedPassword,
		CreatedAt:    time.Now().UTC(),
	}
	data, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(email)); err == nil {
			return errors.ErrUserAlreadyExists
		}
		return txn.Set(userKey(email), data)
	})
	return user.ID, err
}

func (u UserRepository) GetUserByEmail(email string) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(email))
		if err != nil {
			return err // Surfaces as ErrInvalidCredentials at the service layer
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})
	if err != nil {
		return User{}, err
	}
	return user, nil
}
