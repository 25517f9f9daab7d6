package models

import (
	"time"

	"github.com/google/uuid"
)

// Records below are owned by other services and only read here.

type Agency struct {
	ID     uuid.UUID  `json:"id" db:"id"`
	Name   string     `json:"name" db:"name"`
	Tier   AgencyTier `json:"tier" db:"tier"`
	Active bool       `json:"active" db:"active"`
}

type User struct {
	ID       uuid.UUID  `json:"id" db:"id"`
	AgencyID *uuid.UUID `json:"agency_id,omitempty" db:"agency_id"`
	Role     TargetRole `json:"role" db:"role"`
	Name     string     `json:"name" db:"name"`
	Email    string     `json:"email" db:"email"`
	Phone    *string    `json:"phone,omitempty" db:"phone"`
	Active   bool       `json:"active" db:"active"`
}

type LeadStatus string

const (
	LeadNew       LeadStatus = "NEW"
	LeadOpened    LeadStatus = "OPENED"
	LeadContacted LeadStatus = "CONTACTED"
	LeadFollowUp  LeadStatus = "FOLLOW_UP"
	LeadConverted LeadStatus = "CONVERTED"
	LeadLost      LeadStatus = "LOST"
	LeadArchived  LeadStatus = "ARCHIVED"
)

// AwaitingResponse is true for leads nobody has answered yet.
func (s LeadStatus) AwaitingResponse() bool {
	switch s {
	case LeadNew, LeadOpened:
		return true
	case LeadContacted, LeadFollowUp, LeadConverted, LeadLost, LeadArchived:
		return false
	}
	return false
}

type Lead struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	AgencyID        uuid.UUID  `json:"agency_id" db:"agency_id"`
	AssignedAgentID *uuid.UUID `json:"assigned_agent_id,omitempty" db:"assigned_agent_id"`
	ListingID       *uuid.UUID `json:"listing_id,omitempty" db:"listing_id"`
	ReceivedAt      time.Time  `json:"received_at" db:"received_at"`
	FirstResponseAt *time.Time `json:"first_response_at,omitempty" db:"first_response_at"`
	Status          LeadStatus `json:"status" db:"status"`
}

type Listing struct {
	ID         uuid.UUID `json:"id" db:"id"`
	AgencyID   uuid.UUID `json:"agency_id" db:"agency_id"`
	AgentID    uuid.UUID `json:"agent_id" db:"agent_id"`
	Title      string    `json:"title" db:"title"`
	PhotoCount int       `json:"photo_count" db:"photo_count"`
	IsActive   bool      `json:"is_active" db:"is_active"`
}

type Agent struct {
	UserID       uuid.UUID  `json:"user_id" db:"user_id"`
	AgencyID     uuid.UUID  `json:"agency_id" db:"agency_id"`
	Name         string     `json:"name" db:"name"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty" db:"last_active_at"`
	Active       bool       `json:"active" db:"active"`
}
