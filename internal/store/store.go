package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"socdash/internal/models"
)

var ErrNotFound = errors.New("not found")
var ErrConflict = errors.New("conflict")

// Store wraps the shared *sql.DB. It is constructed once in main and
// injected; the driver name picks the placeholder style.
type Store struct {
	db     *sql.DB
	driver string
}

func New(db *sql.DB, driver string) *Store { return &Store{db: db, driver: driver} }

func (s *Store) ph(i int) string {
	if strings.Contains(strings.ToLower(s.driver), "pgx") || strings.Contains(strings.ToLower(s.driver), "postgres") {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

func (s *Store) CreateInvitedUser(ctx context.Context, email, role, token string) (models.User, error) {
	now := time.Now().UTC()
	u := models.User{ID: uuid.NewString(), Email: email, Role: role, IsActivated: false, ActivationToken: &token, CreatedAt: now}
	q := fmt.Sprintf(
		`INSERT INTO users(id,email,username,password_hash,role,is_activated,activation_token,created_at) VALUES(%s,%s,%s,%s,%s,%s,%s,%s)`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7), s.ph(8),
	)
	_, err := s.db.ExecContext(ctx, q, u.ID, u.Email, nil, nil, u.Role, 0, token, u.CreatedAt)
	if err != nil {
		if col := uniqueColumn(err); col == "email" {
			return models.User{}, ErrConflict
		}
		return models.User{}, err
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	q := fmt.Sprintf(`SELECT id,email,username,password_hash,role,is_activated,activation_token,created_at FROM users WHERE email=%s`, s.ph(1))
	return s.scanUser(s.db.QueryRowContext(ctx, q, email))
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	q := fmt.Sprintf(`SELECT id,email,username,password_hash,role,is_activated,activation_token,created_at FROM users WHERE username=%s`, s.ph(1))
	return s.scanUser(s.db.QueryRowContext(ctx, q, username))
}

// ActivateUser consumes an activation token. The single conditional UPDATE is
// what makes concurrent activation attempts safe: only a row whose token
// still matches and whose flag is still clear is touched, so at most one
// request can win. Zero rows affected means the token never existed or was
// already consumed.
func (s *Store) ActivateUser(ctx context.Context, token, username, passwordHash string) error {
	q := fmt.Sprintf(
		`UPDATE users SET username=%s, password_hash=%s, is_activated=1, activation_token=NULL WHERE activation_token=%s AND is_activated=0`,
		s.ph(1), s.ph(2), s.ph(3),
	)
	res, err := s.db.ExecContext(ctx, q, username, passwordHash, token)
	if err != nil {
		if uniqueColumn(err) == "username" {
			return ErrConflict
		}
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,email,username,password_hash,role,is_activated,activation_token,created_at FROM users ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type Invitation struct {
	Email       string
	IsActivated bool
	CreatedAt   time.Time
}

func (s *Store) ListInvitations(ctx context.Context) ([]Invitation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT email,is_activated,created_at FROM users ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Invitation
	for rows.Next() {
		var inv Invitation
		var activated int
		if err := rows.Scan(&inv.Email, &activated, &inv.CreatedAt); err != nil {
			return nil, err
		}
		inv.IsActivated = activated == 1
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *Store) InsertStatusSample(ctx context.Context, recordedAt time.Time, status models.Status) error {
	q := fmt.Sprintf(`INSERT INTO status_logs(id,recorded_at,status) VALUES(%s,%s,%s)`, s.ph(1), s.ph(2), s.ph(3))
	_, err := s.db.ExecContext(ctx, q, uuid.NewString(), recordedAt.UTC(), string(status))
	return err
}

func (s *Store) ListStatusSamplesSince(ctx context.Context, since time.Time) ([]models.StatusSample, error) {
	q := fmt.Sprintf(`SELECT id,recorded_at,status FROM status_logs WHERE recorded_at >= %s ORDER BY recorded_at ASC`, s.ph(1))
	rows, err := s.db.QueryContext(ctx, q, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StatusSample
	for rows.Next() {
		var sample models.StatusSample
		var status string
		if err := rows.Scan(&sample.ID, &sample.RecordedAt, &status); err != nil {
			return nil, err
		}
		sample.Status = models.Status(status)
		out = append(out, sample)
	}
	return out, rows.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanUser(row *sql.Row) (models.User, error) {
	u, err := scanUserRow(row)
	if err == sql.ErrNoRows {
		return models.User{}, ErrNotFound
	}
	return u, err
}

func scanUserRow(row rowScanner) (models.User, error) {
	var u models.User
	var username, passwordHash, token sql.NullString
	var activated int
	if err := row.Scan(&u.ID, &u.Email, &username, &passwordHash, &u.Role, &activated, &token, &u.CreatedAt); err != nil {
		return models.User{}, err
	}
	u.IsActivated = activated == 1
	if username.Valid {
		v := username.String
		u.Username = &v
	}
	if passwordHash.Valid {
		v := passwordHash.String
		u.PasswordHash = &v
	}
	if token.Valid {
		v := token.String
		u.ActivationToken = &v
	}
	return u, nil
}

// uniqueColumn reports which column a unique-constraint error names, or ""
// for other errors. Message sniffing covers all three supported drivers.
func uniqueColumn(err error) string {
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "unique") && !strings.Contains(msg, "duplicate") {
		return ""
	}
	for _, col := range []string{"activation_token", "username", "email"} {
		if strings.Contains(msg, col) {
			return col
		}
	}
	return ""
}
