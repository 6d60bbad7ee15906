package models

import "time"

// User is a dashboard account. Invited users carry an activation token and
// have no username or password hash until the token is consumed.
type User struct {
	ID              string
	Email           string
	Username        *string
	PasswordHash    *string
	Role            string
	IsActivated     bool
	ActivationToken *string
	CreatedAt       time.Time
}

type Status string

const (
	StatusUp   Status = "Up"
	StatusDown Status = "Down"
)

// StatusSample is one observation of the monitored service.
type StatusSample struct {
	ID         string
	RecordedAt time.Time
	Status     Status
}
