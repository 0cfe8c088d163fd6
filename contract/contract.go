package contract

import (
	"context"
	"reflect"

	"chat-relay/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives broadcast events for one consumer, typically a
// live connection. Consume must not block longer than the context allows.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// ISessionRegistry maps live sessions to their sinks and rooms.
type ISessionRegistry interface {
	Register(sessionID string, sink EventSink)
	Unregister(sessionID string)
	Join(sessionID, room string)
	Leave(sessionID, room string)
	DropRoom(room string)
	SinksForRoom(room, excludeSessionID string) []EventSink
	AllSinks() []EventSink
}

// IRoomRegistry owns the set of known room names.
type IRoomRegistry interface {
	List() []string
	Contains(name string) bool
	Create(name string) ([]string, error)
	Delete(name string) ([]string, error)
}

// IPresenceTracker owns, per room, the ordered set of joined usernames.
type IPresenceTracker interface {
	Join(room, username string) []string
	Leave(room, username string) []string
	Snapshot(room string) []string
	DropRoom(room string)
}
