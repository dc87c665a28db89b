package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"forum-service/internal/auth"
)

// ResourceType represents the type of resource being acted upon
type ResourceType string

const (
	ResourcePost     ResourceType = "post"
	ResourceComment  ResourceType = "comment"
	ResourceBooking  ResourceType = "booking"
	ResourceProfile  ResourceType = "profile"
	ResourcePurchase ResourceType = "purchase"
	ResourceInfo     ResourceType = "community_info"
	ResourceSession  ResourceType = "session"
)

// Action represents the action being performed
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionCancel  Action = "cancel"
	ActionGrant   Action = "grant"
	ActionRevoke  Action = "revoke"
	ActionUnlock  Action = "unlock"
	ActionRefresh Action = "refresh"
)

// Status represents the outcome of an action
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusDenied  Status = "denied"
)

// Event is one audit trail row.
type Event struct {
	ID           uuid.UUID
	EventType    string
	ActorID      string
	ResourceType ResourceType
	ResourceID   string
	Action       Action
	Status       Status
	IPAddress    string
	UserAgent    string
	RequestID    string
	Metadata     map[string]any
	CreatedAt    time.Time
}

const logTimeout = 2 * time.Second

// Logger writes audit events. Writes are asynchronous and never fail
// the request they describe.
type Logger struct {
	pool *pgxpool.Pool
}

func NewLogger(pool *pgxpool.Pool) *Logger {
	return &Logger{pool: pool}
}

// Log records an audit event synchronously.
func (l *Logger) Log(ctx context.Context, event *Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var metadataJSON []byte
	if event.Metadata != nil {
		var err error
		if metadataJSON, err = json.Marshal(event.Metadata); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO audit_events (
			id, event_type, actor_id, resource_type, resource_id,
			action, status, ip_address, user_agent, request_id, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := l.pool.Exec(ctx, query,
		event.ID,
		event.EventType,
		event.ActorID,
		event.ResourceType,
		event.ResourceID,
		event.Action,
		event.Status,
		event.IPAddress,
		event.UserAgent,
		event.RequestID,
		metadataJSON,
		event.CreatedAt,
	)
	return err
}

// Record builds an event from the request context and writes it in the
// background, bounded by its own timeout so a slow insert cannot hold
// the response.
func (l *Logger) Record(c echo.Context, resourceType ResourceType, resourceID string, action Action, status Status, metadata map[string]any) {
	if l == nil || l.pool == nil {
		return
	}

	event := &Event{
		EventType:    string(action) + "_" + string(resourceType),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Action:       action,
		Status:       status,
		IPAddress:    c.RealIP(),
		UserAgent:    c.Request().UserAgent(),
		RequestID:    c.Response().Header().Get("X-Request-ID"),
		Metadata:     metadata,
	}

	if session := auth.SessionFromContext(c); session != nil {
		event.ActorID = session.User.ID
	}

	output := c.Logger().Output()

	ctx, cancel := context.WithTimeout(context.Background(), logTimeout)
	go func() {
		defer cancel()
		if err := l.Log(ctx, event); err != nil {
			fmt.Fprintf(output, "audit log failed: %v\n", err)
		}
	}()
}

// RecordError is Record for failed actions, with the error captured in
// the metadata.
func (l *Logger) RecordError(c echo.Context, resourceType ResourceType, resourceID string, action Action, err error) {
	l.Record(c, resourceType, resourceID, action, StatusFailure, map[string]any{
		"error": err.Error(),
	})
}
