// Package domain contains core concepts of the chat relay.
// This file defines Message events and related rules.
// Messages are immutable and validated by the domain.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat event.
// CreatedAt is server-assigned at persistence time.
type Message struct {
	ID        uuid.UUID // unique identifier
	Room      string
	Author    string
	Content   string
	CreatedAt time.Time
}
