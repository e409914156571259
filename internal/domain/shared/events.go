package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Attendance event types. Subscribers use them to invalidate cached stats and
// to keep an audit trail; the ledger itself never depends on delivery.
const (
	EventAttendanceMarked     EventType = "attendance.marked"
	EventAttendanceCheckedOut EventType = "attendance.checked_out"
	EventDuplicatesMerged     EventType = "attendance.duplicates_merged"
	EventAutoCheckoutSwept    EventType = "attendance.auto_checkout_swept"
	EventClassStarted         EventType = "schedule.class_started"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event stamped with at.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Attendance Events
// ═══════════════════════════════════════════════════════════════════════════

// AttendanceMarkedEvent is emitted when a record is created or its status changes.
type AttendanceMarkedEvent struct {
	BaseEvent
	PersonID PersonID `json:"person_id"`
	Role     Role     `json:"role"`
	Date     string   `json:"date"`
	Status   string   `json:"status"`
	Explicit bool     `json:"explicit"`
}

// Payload implements Event interface.
func (e AttendanceMarkedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"person_id": e.PersonID.String(),
		"role":      e.Role.String(),
		"date":      e.Date,
		"status":    e.Status,
		"explicit":  e.Explicit,
	}
}

// NewAttendanceMarkedEvent creates a new AttendanceMarkedEvent.
func NewAttendanceMarkedEvent(recordID string, personID PersonID, role Role, date, status string, explicit bool, at time.Time) AttendanceMarkedEvent {
	return AttendanceMarkedEvent{
		BaseEvent: NewBaseEvent(EventAttendanceMarked, recordID, at),
		PersonID:  personID,
		Role:      role,
		Date:      date,
		Status:    status,
		Explicit:  explicit,
	}
}

// AttendanceCheckedOutEvent is emitted when a record receives its checkout,
// either from the person or from the end-of-day sweep.
type AttendanceCheckedOutEvent struct {
	BaseEvent
	PersonID     PersonID `json:"person_id"`
	Role         Role     `json:"role"`
	CheckOutTime string   `json:"check_out_time"`
	Automatic    bool     `json:"automatic"`
}

// Payload implements Event interface.
func (e AttendanceCheckedOutEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"person_id":      e.PersonID.String(),
		"role":           e.Role.String(),
		"check_out_time": e.CheckOutTime,
		"automatic":      e.Automatic,
	}
}

// NewAttendanceCheckedOutEvent creates a new AttendanceCheckedOutEvent.
func NewAttendanceCheckedOutEvent(recordID string, personID PersonID, role Role, checkOutTime string, automatic bool, at time.Time) AttendanceCheckedOutEvent {
	return AttendanceCheckedOutEvent{
		BaseEvent:    NewBaseEvent(EventAttendanceCheckedOut, recordID, at),
		PersonID:     personID,
		Role:         role,
		CheckOutTime: checkOutTime,
		Automatic:    automatic,
	}
}

// DuplicatesMergedEvent is emitted after a cleanup pass that changed the ledger.
type DuplicatesMergedEvent struct {
	BaseEvent
	GroupsMerged   int `json:"groups_merged"`
	RecordsDeleted int `json:"records_deleted"`
}

// Payload implements Event interface.
func (e DuplicatesMergedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"groups_merged":   e.GroupsMerged,
		"records_deleted": e.RecordsDeleted,
	}
}

// NewDuplicatesMergedEvent creates a new DuplicatesMergedEvent.
func NewDuplicatesMergedEvent(merged, deleted int, at time.Time) DuplicatesMergedEvent {
	return DuplicatesMergedEvent{
		BaseEvent:      NewBaseEvent(EventDuplicatesMerged, "ledger", at),
		GroupsMerged:   merged,
		RecordsDeleted: deleted,
	}
}

// AutoCheckoutSweptEvent is emitted after the end-of-day sweep closed records.
type AutoCheckoutSweptEvent struct {
	BaseEvent
	Count        int    `json:"count"`
	CheckoutTime string `json:"checkout_time"`
}

// Payload implements Event interface.
func (e AutoCheckoutSweptEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"count":         e.Count,
		"checkout_time": e.CheckoutTime,
	}
}

// NewAutoCheckoutSweptEvent creates a new AutoCheckoutSweptEvent.
func NewAutoCheckoutSweptEvent(count int, checkoutTime string, at time.Time) AutoCheckoutSweptEvent {
	return AutoCheckoutSweptEvent{
		BaseEvent:    NewBaseEvent(EventAutoCheckoutSwept, "ledger", at),
		Count:        count,
		CheckoutTime: checkoutTime,
	}
}

// ClassStartedEvent is emitted when a schedule slot moves to in_progress.
type ClassStartedEvent struct {
	BaseEvent
	TeacherID PersonID `json:"teacher_id"`
	StudentID PersonID `json:"student_id"`
}

// Payload implements Event interface.
func (e ClassStartedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"teacher_id": e.TeacherID.String(),
		"student_id": e.StudentID.String(),
	}
}

// NewClassStartedEvent creates a new ClassStartedEvent.
func NewClassStartedEvent(slotID string, teacherID, studentID PersonID, at time.Time) ClassStartedEvent {
	return ClassStartedEvent{
		BaseEvent: NewBaseEvent(EventClassStarted, slotID, at),
		TeacherID: teacherID,
		StudentID: studentID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Bus contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(Event) error { return nil }
