package projects

import (
	"time"
)

// Status enumerates the lifecycle of a construction project.
type Status string

const (
	StatusActive     Status = "active"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusOnHold     Status = "on_hold"
)

// Valid reports whether the status is a known value.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInProgress, StatusCompleted, StatusOnHold:
		return true
	}
	return false
}

// Project represents a construction project that requisitions charge against.
type Project struct {
	ID             int64     `json:"id"`
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	Site           string    `json:"site"`
	ContractNumber string    `json:"contract_number"`
	StartDate      time.Time `json:"start_date"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
