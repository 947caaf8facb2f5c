package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"medwise-api/internal/events"
	"medwise-api/internal/model"
)

var issueTypes = map[string]bool{
	"technical":   true,
	"billing":     true,
	"appointment": true,
	"other":       true,
}

const maxDescription = 4000

// Support turns help-desk submissions into tickets on the event stream.
type Support struct {
	pub events.Publisher
	log *slog.Logger
	now func() time.Time
}

func NewSupport(pub events.Publisher, log *slog.Logger) *Support {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Support{pub: pub, log: log, now: time.Now}
}

func (s *Support) Open(ctx context.Context, id model.Identity, issueType, description string) (*model.SupportTicket, error) {
	if err := checkIdentity(id); err != nil {
		return nil, err
	}
	issueType = strings.ToLower(strings.TrimSpace(issueType))
	description = strings.TrimSpace(description)
	if issueType == "" || description == "" {
		return nil, invalid(MsgFieldsRequired)
	}
	if !issueTypes[issueType] {
		return nil, invalid("Invalid issue type")
	}
	if len(description) > maxDescription {
		return nil, invalid("Description is too long")
	}

	t := &model.SupportTicket{
		ID:          uuid.New().String(),
		UserID:      id.UserID,
		Role:        id.Role,
		IssueType:   issueType,
		Description: description,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.pub.Publish(ctx, events.Event{Type: events.SupportTicket, Ticket: t, At: t.CreatedAt}); err != nil {
		s.log.Warn("publish support ticket", "ticket_id", t.ID, "error", err)
	}
	// the log line is the ticket's record when no broker is configured
	s.log.Info("support ticket opened",
		"ticket_id", t.ID,
		"user_id", t.UserID,
		"role", t.Role,
		"issue_type", t.IssueType,
		"description", t.Description,
		"created_at", t.CreatedAt,
	)
	return t, nil
}
