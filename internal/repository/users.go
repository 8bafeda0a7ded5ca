package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/evseev/channelgate/internal/domain"
)

const userColumns = `id, telegram_id, COALESCE(username, ''), COALESCE(first_name, ''),
	COALESCE(last_name, ''), language, is_blocked, is_admin, created_at, last_activity`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.TelegramID,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.Language,
		&u.IsBlocked,
		&u.IsAdmin,
		&u.CreatedAt,
		&u.LastActivity,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(s.db.QueryRow(ctx, query, id))
}

func (s *Store) GetUserByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`
	return scanUser(s.db.QueryRow(ctx, query, telegramID))
}

func (s *Store) listUsers(ctx context.Context, query string, args ...any) ([]*domain.User, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
