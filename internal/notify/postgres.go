package notify

import (
	"context"
	"database/sql"
	"errors"
)

// PGStore is the Postgres-backed Store.
type PGStore struct {
	db *sql.DB
}

var _ Store = (*PGStore)(nil)

// NewPGStore wraps an open database handle.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, n *Notification) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	_, err := s.db.ExecContext(ctx, `
		insert into notifications (id, user_id, title, body, read, created_at)
		values ($1, $2, $3, $4, $5, $6)
	`, n.ID, n.UserID, n.Title, n.Body, n.Read, n.CreatedAt)
	return err
}

func (s *PGStore) Find(ctx context.Context, id string) (*Notification, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var n Notification
	err := s.db.QueryRowContext(ctx, `
		select id, user_id, title, body, read, created_at
		from notifications where id = $1
	`, id).Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Read, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *PGStore) ListByUser(ctx context.Context, userID string) ([]*Notification, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, user_id, title, body, read, created_at
		from notifications
		where user_id = $1
		order by created_at desc
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &n)
	}
	return result, rows.Err()
}

func (s *PGStore) MarkRead(ctx context.Context, id string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `update notifications set read = true where id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) MarkAllRead(ctx context.Context, userID string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	_, err := s.db.ExecContext(ctx, `update notifications set read = true where user_id = $1`, userID)
	return err
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `delete from notifications where id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) CountUnread(ctx context.Context, userID string) (int, error) {
	if s.db == nil {
		return 0, errors.New("database connection unavailable")
	}
	var n int
	err := s.db.QueryRowContext(ctx, `
		select count(*) from notifications where user_id = $1 and read = false
	`, userID).Scan(&n)
	return n, err
}
