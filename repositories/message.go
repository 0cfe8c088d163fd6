package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IMessageRepository interface {
	StoreMessage(message DiskMessage) error
	RecentMessages(room string, limit int) ([]DiskMessage, error)
	GetMessages(room string, cursor *string) ([]DiskMessage, *string, error)
}

// MessageRepository is the append-only message log on BadgerDB.
type MessageRepository struct {
	db       *badger.DB
	log      *slog.Logger
	pageSize *int
}

// NewMessageRepository builds the repository. pageSize bounds the
// GetMessages pagination; nil means unbounded pages.
func NewMessageRepository(db *badger.DB, log *slog.Logger, pageSize *int) MessageRepository {
	return MessageRepository{db: db, log: log, pageSize: pageSize}
}

// DiskMessage is the stored representation of a chat message.
type DiskMessage struct {
	ID      uuid.UUID `json:"id"`
	Room    string    `json:"room"`
	Author  string    `json:"author"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// maxTimestampKey sorts after any zero-padded UnixNano component.
const maxTimestampKey = "9999999999999999999"

func messagePrefix(room string) string {
	return fmt.Sprintf("msg:%s:", room)
}

// StoreMessage persists a message in BadgerDB.
// The key is formatted as "msg:{room}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using the UUID as a collision disconnector
//     if two messages arrive at the same nanosecond.
func (m MessageRepository) StoreMessage(message DiskMessage) error {
	key := fmt.Sprintf("%s%019d:%s",
		messagePrefix(message.Room),
		message.At.UnixNano(),
		message.ID,
	)
	bytes, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// RecentMessages returns the newest `limit` messages of a room,
// delivered oldest-first. This is the history snapshot a joining
// session receives.
func (m MessageRepository) RecentMessages(room string, limit int) ([]DiskMessage, error) {
	var raw [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messagePrefix(room))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append(append([]byte{}, prefix...), []byte(maxTimestampKey)...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if len(raw) == limit {
				break
			}
			if err := it.Item().Value(func(value []byte) error {
				raw = append(raw, append([]byte{}, value...))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The scan runs newest-first; flip to chronological order.
	messages := make([]DiskMessage, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var message DiskMessage
		if err = json.Unmarshal(raw[i], &message); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}

// GetMessages retrieves one page of a room's history, newest-first,
// using a reverse prefix scan. Thanks to the padded timestamp in the
// key, messages are naturally sorted by time. The returned cursor
// resumes the scan on the next call; it stops collecting once the
// configured page size is reached.
func (m MessageRepository) GetMessages(room string, cursor *string) ([]DiskMessage, *string, error) {
	var raw [][]byte
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := messagePrefix(room)
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			seekKey = append(append([]byte{}, prefix...), []byte(maxTimestampKey)...)
		default:
			seekKey = append(append([]byte{}, prefix...), []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.pageSize != nil && len(raw) == *m.pageSize {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.pageSize))
				break
			}
			item := it.Item()
			// Memorize cursor part of the actual key
			lastKey = string(item.Key()[prefixLen:])
			if err := item.Value(func(value []byte) error {
				raw = append(raw, append([]byte{}, value...))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	messages := make([]DiskMessage, 0, len(raw))
	for _, b := range raw {
		var message DiskMessage
		if err = json.Unmarshal(b, &message); err != nil {
			return nil, nil, err
		}
		messages = append(messages, message)
	}
	return messages, &lastKey, nil
}
