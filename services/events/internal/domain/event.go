package domain

import (
	"strings"
	"time"
)

type Event struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	EventDate         *time.Time `json:"event_date,omitempty"`
	AttendeeLimit     *int       `json:"attendee_limit,omitempty"`
	FacultyID         *int       `json:"faculty_id,omitempty"`
	FacultyName       *string    `json:"faculty_name,omitempty"`
	BusinessModelID   *int       `json:"business_model_id,omitempty"`
	BusinessModelName *string    `json:"business_model_name,omitempty"`
	CreatorID         string     `json:"creator_id"`
	CreatedAt         time.Time  `json:"created_at"`
}

type CreateEventRequest struct {
	Name            string     `json:"name" validate:"required,min=3,max=200"`
	Description     string     `json:"description" validate:"max=2000"`
	EventDate       *time.Time `json:"event_date"`
	AttendeeLimit   *int       `json:"attendee_limit" validate:"omitempty,gt=0"`
	FacultyID       *int       `json:"faculty_id" validate:"omitempty,gt=0"`
	BusinessModelID *int       `json:"business_model_id" validate:"omitempty,gt=0"`
}

func (r *CreateEventRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
}

type EventFilter struct {
	FacultyID       *int
	BusinessModelID *int
	Search          string
	Limit           int
	Offset          int
}

type AddOrganizerRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

// Lookup is a row of a small reference table such as business models.
type Lookup struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
