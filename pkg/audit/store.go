// Package audit records mutating API calls against the fleet registry and
// serves them back for review.
package audit

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Metadata is free-form event context stored as JSON text.
type Metadata map[string]any

// Scan implements the sql.Scanner interface for Metadata.
func (m *Metadata) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return fmt.Errorf("unsupported type for Metadata: %T", value)
	}
	return json.Unmarshal(b, m)
}

// Value implements the driver.Valuer interface for Metadata.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Event is an immutable audit log entry.
type Event struct {
	ID           string    `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	Actor        string    `gorm:"column:actor;size:100;not null;index:idx_audit_actor_time,priority:1" json:"actor"`
	RequestID    string    `gorm:"column:request_id;size:100;index" json:"requestId,omitempty"`
	Method       string    `gorm:"column:method;size:10;not null" json:"method"`
	Path         string    `gorm:"column:path;size:255;not null" json:"path"`
	ResourceType string    `gorm:"column:resource_type;size:50;index:idx_audit_resource_time,priority:1" json:"resourceType,omitempty"`
	ResourceID   string    `gorm:"column:resource_id;size:50" json:"resourceId,omitempty"`
	Action       string    `gorm:"column:action;size:20;not null" json:"action"`
	Outcome      string    `gorm:"column:outcome;size:20;not null" json:"outcome"`
	StatusCode   int       `gorm:"column:status_code" json:"statusCode"`
	Metadata     Metadata  `gorm:"column:metadata;type:text" json:"metadata,omitempty"`
	CreatedAt    time.Time `gorm:"column:created_at;index:idx_audit_actor_time,priority:2;index:idx_audit_resource_time,priority:2;index" json:"createdAt"`
}

// TableName returns the GORM table name.
func (Event) TableName() string { return "audit_events" }

// Store provides database operations for audit events.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the audit_events table.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&Event{})
}

// Append writes one event.
func (s *Store) Append(e *Event) error {
	if err := s.db.Create(e).Error; err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// Get returns an event by id, or nil if it does not exist.
func (s *Store) Get(id string) (*Event, error) {
	var e Event
	if err := s.db.First(&e, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get audit event: %w", err)
	}
	return &e, nil
}

// ListFilter narrows List.
type ListFilter struct {
	Actor        string
	ResourceType string
	ResourceID   string
	Outcome      string
}

// List returns events newest first. pageToken is the RFC3339Nano creation
// time of the last event on the previous page.
func (s *Store) List(f ListFilter, pageSize int, pageToken string) ([]Event, string, int64, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	where := func(q *gorm.DB) *gorm.DB {
		if f.Actor != "" {
			q = q.Where("actor = ?", f.Actor)
		}
		if f.ResourceType != "" {
			q = q.Where("resource_type = ?", f.ResourceType)
		}
		if f.ResourceID != "" {
			q = q.Where("resource_id = ?", f.ResourceID)
		}
		if f.Outcome != "" {
			q = q.Where("outcome = ?", f.Outcome)
		}
		return q
	}

	var total int64
	if err := where(s.db.Model(&Event{})).Count(&total).Error; err != nil {
		return nil, "", 0, fmt.Errorf("count audit events: %w", err)
	}

	query := where(s.db.Model(&Event{})).Order("created_at DESC").Limit(pageSize + 1)
	if pageToken != "" {
		t, err := time.Parse(time.RFC3339Nano, pageToken)
		if err != nil {
			return nil, "", 0, fmt.Errorf("invalid page token: %w", err)
		}
		query = query.Where("created_at < ?", t)
	}

	var events []Event
	if err := query.Find(&events).Error; err != nil {
		return nil, "", 0, fmt.Errorf("list audit events: %w", err)
	}

	next := ""
	if len(events) > pageSize {
		events = events[:pageSize]
		next = events[pageSize-1].CreatedAt.Format(time.RFC3339Nano)
	}
	return events, next, total, nil
}
