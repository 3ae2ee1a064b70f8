package audit

import (
	"context"
	"log/slog"
	"time"
)

// Event is one audit record. TokenID is the jti of the access or
// change-password token involved, never a raw credential.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	TokenID   string            `json:"token_id,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// LogValue renders the event as a slog group, omitting empty fields.
func (e Event) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, 8)
	attrs = append(attrs,
		slog.String("type", e.EventType),
		slog.Bool("success", e.Success),
	)
	if e.UserID != "" {
		attrs = append(attrs, slog.String("user_id", e.UserID))
	}
	if e.TokenID != "" {
		attrs = append(attrs, slog.String("token_id", e.TokenID))
	}
	if e.IP != "" {
		attrs = append(attrs, slog.String("ip", e.IP))
	}
	if e.Error != "" {
		attrs = append(attrs, slog.String("error", e.Error))
	}
	for k, v := range e.Metadata {
		attrs = append(attrs, slog.String(k, v))
	}
	return slog.GroupValue(attrs...)
}

// Sink receives audit events from the dispatcher goroutine. Implementations
// must not retain ctx.
type Sink interface {
	Emit(ctx context.Context, event Event)
}
