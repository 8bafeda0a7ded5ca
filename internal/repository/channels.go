package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/evseev/channelgate/internal/domain"
)

func (s *Store) GetChannelByID(ctx context.Context, id int64) (*domain.Channel, error) {
	query := `SELECT id, telegram_id, title, is_active, created_at FROM channels WHERE id = $1`
	var c domain.Channel
	err := s.db.QueryRow(ctx, query, id).Scan(&c.ID, &c.TelegramID, &c.Title, &c.IsActive, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChannelNotFound
		}
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return &c, nil
}

func (s *Store) GetPackageByID(ctx context.Context, id int64) (*domain.Package, error) {
	query := `SELECT id, title, is_active, created_at FROM packages WHERE id = $1`
	var p domain.Package
	err := s.db.QueryRow(ctx, query, id).Scan(&p.ID, &p.Title, &p.IsActive, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPackageNotFound
		}
		return nil, fmt.Errorf("get package: %w", err)
	}
	return &p, nil
}

// ListPackageChannels returns the active channels bundled in a package.
func (s *Store) ListPackageChannels(ctx context.Context, packageID int64) ([]*domain.Channel, error) {
	query := `
		SELECT c.id, c.telegram_id, c.title, c.is_active, c.created_at
		FROM channels c
		JOIN package_channels pc ON pc.channel_id = c.id
		WHERE pc.package_id = $1 AND c.is_active
		ORDER BY c.id
	`
	rows, err := s.db.Query(ctx, query, packageID)
	if err != nil {
		return nil, fmt.Errorf("list package channels: %w", err)
	}
	defer rows.Close()

	channels := make([]*domain.Channel, 0)
	for rows.Next() {
		var c domain.Channel
		if err := rows.Scan(&c.ID, &c.TelegramID, &c.Title, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, &c)
	}
	return channels, rows.Err()
}
