// Package events carries domain events from the workspace services to
// whoever subscribes: logging, metrics, and other processes through Redis.
package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/workspace-api/internal/models"
	"go.uber.org/zap"
)

type Name string

const (
	WorkspaceCreated     Name = "workspace.created"
	WorkspaceUpdated     Name = "workspace.updated"
	WorkspaceDeleted     Name = "workspace.deleted"
	WorkspaceRoleUpdated Name = "workspace.role.updated"
	WorkspaceRoleDeleted Name = "workspace.role.deleted"
	WorkspaceJoined      Name = "workspace.joined"

	InviteCreated  Name = "invite.created"
	InviteResent   Name = "invite.resent"
	InviteCanceled Name = "invite.canceled"
	InviteAccepted Name = "invite.accepted"
	InviteDeclined Name = "invite.declined"
)

type Event struct {
	ID         string    `json:"id"`
	Name       Name      `json:"name"`
	Payload    any       `json:"payload"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New stamps a payload with an id and the current time.
func New(name Name, payload any) Event {
	return Event{
		ID:         uuid.NewString(),
		Name:       name,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}

type WorkspacePayload struct {
	Workspace models.Workspace `json:"workspace"`
	ActorID   uint64           `json:"actor_id,omitempty"`
}

type WorkspaceRolePayload struct {
	WorkspaceID uint64      `json:"workspace_id"`
	UserID      uint64      `json:"user_id"`
	Role        models.Role `json:"role,omitempty"`
}

type InvitePayload struct {
	Invite  models.ResourceInvite `json:"invite"`
	ActorID uint64                `json:"actor_id"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type Handler func(ctx context.Context, event Event) error

// Bus dispatches events synchronously to in-process handlers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Name][]Handler
	all      []Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[Name][]Handler)}
}

// Subscribe registers h for one event name.
func (b *Bus) Subscribe(name Name, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// SubscribeAll registers h for every event.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

// Publish runs every matching handler and joins their errors.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.all)+len(b.handlers[event.Name]))
	handlers = append(handlers, b.all...)
	handlers = append(handlers, b.handlers[event.Name]...)
	b.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := h(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Multi publishes to several publishers, continuing past failures.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogHandler writes every event to the logger at debug level.
func LogHandler(logger *zap.Logger) Handler {
	return func(_ context.Context, event Event) error {
		logger.Debug("domain event",
			zap.String("event_id", event.ID),
			zap.String("event", string(event.Name)),
			zap.Any("payload", event.Payload),
		)
		return nil
	}
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Names returns the names of recorded events in order.
func (r *Recorder) Names() []Name {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]Name, len(r.events))
	for i, e := range r.events {
		names[i] = e.Name
	}
	return names
}
