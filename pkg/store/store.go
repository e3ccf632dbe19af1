package store

import (
	"context"
	"errors"

	"github.com/expire-adapter/expire-go/pkg/model"
)

// Store errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrClosed        = errors.New("store closed")
	ErrInvalidObject = errors.New("object without id")
)

// ObjectHandler receives object changes. obj is nil when the object was
// deleted.
type ObjectHandler func(id string, obj *model.Object)

// StateHandler receives state changes. state is nil when the state was
// deleted.
type StateHandler func(id string, state *model.State)

// Store is the external object and state store.
type Store interface {
	// GetObject returns the object definition for id, or ErrNotFound.
	GetObject(ctx context.Context, id string) (*model.Object, error)

	// GetState returns the current observation for id, or ErrNotFound.
	GetState(ctx context.Context, id string) (*model.State, error)

	// SetState writes val with the given acknowledgement flag.
	SetState(ctx context.Context, id string, val any, ack bool) error

	// EnumerateWatchable returns all objects that carry an enabled settings
	// block for namespace, ordered by ID.
	EnumerateWatchable(ctx context.Context, namespace string) ([]*model.Object, error)

	// SubscribeObjects registers h for object changes. The returned function
	// removes the subscription.
	SubscribeObjects(h ObjectHandler) (unsubscribe func())

	// SubscribeStates registers h for state changes. The returned function
	// removes the subscription.
	SubscribeStates(h StateHandler) (unsubscribe func())

	// Close releases the store. Pending notifications are dropped.
	Close() error
}

// Admin is implemented by stores that can also be edited directly, used by
// the interactive shell and by tests.
type Admin interface {
	// SetObject creates or replaces an object definition.
	SetObject(ctx context.Context, obj *model.Object) error

	// DeleteObject removes an object definition, or returns ErrNotFound.
	DeleteObject(ctx context.Context, id string) error

	// PutState stores a complete observation, timestamps included.
	PutState(ctx context.Context, id string, st *model.State) error

	// Objects returns all object definitions ordered by ID.
	Objects(ctx context.Context) ([]*model.Object, error)

	// Flush waits until pending notifications have been delivered.
	Flush()
}
