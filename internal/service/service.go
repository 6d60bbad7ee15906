package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"socdash/internal/auth"
	"socdash/internal/config"
	"socdash/internal/models"
	"socdash/internal/notify"
	"socdash/internal/sla"
	"socdash/internal/store"
)

// Workflow failure kinds. Handlers map these to HTTP statuses; anything else
// is an internal failure.
var (
	ErrDuplicateEmail     = errors.New("email already invited")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already taken")
)

type Service struct {
	cfg    config.Config
	st     *store.Store
	sender notify.Sender
	labels sla.Labels
}

func New(cfg config.Config, st *store.Store, sender notify.Sender) *Service {
	if sender == nil {
		sender = notify.LogSender{}
	}
	return &Service{cfg: cfg, st: st, sender: sender, labels: sla.LabelsForLocale(cfg.SLALocale)}
}

func (s *Service) Store() *store.Store { return s.st }

// Invite creates a pending user and sends the activation link. The invite
// succeeds once the row is persisted: a failed send is logged and left as an
// invited-but-unnotified record, never rolled back.
func (s *Service) Invite(ctx context.Context, email, role string) error {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return validationErrorf("a valid email is required")
	}
	if !s.cfg.RoleAllowed(role) {
		return validationErrorf("role must be one of: %s", strings.Join(s.cfg.Roles, ", "))
	}

	// Exact-match duplicate check; the UNIQUE constraint backstops the race
	// between check and insert.
	if _, err := s.st.GetUserByEmail(ctx, email); err == nil {
		return ErrDuplicateEmail
	} else if err != store.ErrNotFound {
		return err
	}

	token, err := auth.NewActivationToken()
	if err != nil {
		return err
	}
	u, err := s.st.CreateInvitedUser(ctx, email, role, token)
	if err != nil {
		if err == store.ErrConflict {
			return ErrDuplicateEmail
		}
		return err
	}

	link := fmt.Sprintf("%s/activate?token=%s", strings.TrimRight(s.cfg.ActivationBaseURL, "/"), token)
	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.NotifyTimeout())
	defer cancel()
	if err := s.sender.SendInvitation(sendCtx, email, role, link); err != nil {
		log.Printf("invitation send failed user_id=%s email=%s err=%q", u.ID, email, err.Error())
	}
	return nil
}

// Activate consumes a token exactly once. Every token-side failure collapses
// into ErrInvalidToken so callers cannot probe which condition failed.
func (s *Service) Activate(ctx context.Context, token, username, password string) error {
	token = strings.TrimSpace(token)
	username = strings.TrimSpace(username)
	if token == "" {
		return ErrInvalidToken
	}
	if username == "" {
		return validationErrorf("username is required")
	}
	if err := s.validatePassword(password); err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	switch err := s.st.ActivateUser(ctx, token, username, hash); err {
	case nil:
		return nil
	case store.ErrNotFound:
		return ErrInvalidToken
	case store.ErrConflict:
		// Username collision aborts the whole update; the token stays valid
		// for a retry with a different name.
		return ErrUsernameTaken
	default:
		return err
	}
}

type LoginResult struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Login verifies an activated account. Unknown username, pending account and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	u, err := s.st.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if err == store.ErrNotFound {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if !u.IsActivated || u.PasswordHash == nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	if !auth.VerifyPassword(*u.PasswordHash, password) {
		return LoginResult{}, ErrInvalidCredentials
	}
	name := ""
	if u.Username != nil {
		name = *u.Username
	}
	return LoginResult{ID: u.ID, Name: name, Email: u.Email}, nil
}

type UserView struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Username    *string   `json:"username"`
	Role        string    `json:"role"`
	IsActivated bool      `json:"isActivated"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ListUsers projects the safe field subset; the password hash never leaves
// this layer.
func (s *Service) ListUsers(ctx context.Context) ([]UserView, error) {
	users, err := s.st.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]UserView, 0, len(users))
	for _, u := range users {
		out = append(out, UserView{
			ID:          u.ID,
			Email:       u.Email,
			Username:    u.Username,
			Role:        u.Role,
			IsActivated: u.IsActivated,
			CreatedAt:   u.CreatedAt,
		})
	}
	return out, nil
}

type InvitationView struct {
	Email       string    `json:"email"`
	IsActivated bool      `json:"isActivated"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (s *Service) ListInvitations(ctx context.Context) ([]InvitationView, error) {
	invs, err := s.st.ListInvitations(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]InvitationView, 0, len(invs))
	for _, inv := range invs {
		out = append(out, InvitationView{Email: inv.Email, IsActivated: inv.IsActivated, CreatedAt: inv.CreatedAt})
	}
	return out, nil
}

type SampleView struct {
	Timestamp time.Time     `json:"timestamp"`
	Status    models.Status `json:"status"`
}

// SLAWindows returns the raw samples for each display range. A single
// 30-day query feeds all three windows.
func (s *Service) SLAWindows(ctx context.Context) (map[string][]SampleView, error) {
	now := time.Now().UTC()
	all, err := s.st.ListStatusSamplesSince(ctx, now.Add(-30*24*time.Hour))
	if err != nil {
		return nil, err
	}
	out := map[string][]SampleView{
		"1day":   {},
		"7days":  {},
		"30days": {},
	}
	day := now.Add(-24 * time.Hour)
	week := now.Add(-7 * 24 * time.Hour)
	for _, sample := range all {
		v := SampleView{Timestamp: sample.RecordedAt, Status: sample.Status}
		out["30days"] = append(out["30days"], v)
		if sample.RecordedAt.After(week) {
			out["7days"] = append(out["7days"], v)
		}
		if sample.RecordedAt.After(day) {
			out["1day"] = append(out["1day"], v)
		}
	}
	return out, nil
}

// SLAReport aggregates one display range into per-day uptime buckets.
func (s *Service) SLAReport(ctx context.Context, rangeName string) (sla.Report, error) {
	var since time.Duration
	switch rangeName {
	case "1day":
		since = 24 * time.Hour
	case "7days":
		since = 7 * 24 * time.Hour
	case "30days":
		since = 30 * 24 * time.Hour
	default:
		return sla.Report{}, validationErrorf("range must be one of: 1day, 7days, 30days")
	}
	samples, err := s.st.ListStatusSamplesSince(ctx, time.Now().UTC().Add(-since))
	if err != nil {
		return sla.Report{}, err
	}
	return sla.Aggregate(samples, s.labels), nil
}

// RecordSample ingests one status observation. A zero timestamp means now.
func (s *Service) RecordSample(ctx context.Context, at time.Time, status models.Status) error {
	switch status {
	case models.StatusUp, models.StatusDown:
	default:
		return validationErrorf("status must be Up or Down")
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return s.st.InsertStatusSample(ctx, at, status)
}

func (s *Service) validatePassword(pw string) error {
	if strings.TrimSpace(pw) == "" {
		return validationErrorf("password is required")
	}
	if len(pw) < s.cfg.PasswordMinLength {
		return validationErrorf("password must be at least %d characters", s.cfg.PasswordMinLength)
	}
	if len(pw) > s.cfg.PasswordMaxLength {
		return validationErrorf("password must be at most %d characters", s.cfg.PasswordMaxLength)
	}
	return nil
}

// ValidationError marks request input the caller can fix; handlers map it to
// a 400 with the message as the body.
type ValidationError struct{ msg string }

func (e *ValidationError) Error() string { return e.msg }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}
