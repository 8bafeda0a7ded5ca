package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/evseev/channelgate/internal/domain"
)

const paymentColumns = `id, user_id, COALESCE(invoice_id, ''), amount, status, kind,
	channel_id, package_id, duration_days, created_at, paid_at`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.InvoiceID,
		&p.Amount,
		&p.Status,
		&p.Kind,
		&p.ChannelID,
		&p.PackageID,
		&p.DurationDays,
		&p.CreatedAt,
		&p.PaidAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	return &p, nil
}

// ListPendingPayments returns pending payments with an external invoice
// id created after the cutoff. Older pending payments are abandoned and
// left for the cleanup task.
func (s *Store) ListPendingPayments(ctx context.Context, createdAfter time.Time) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = 'pending' AND invoice_id IS NOT NULL AND created_at >= $1
		ORDER BY created_at`
	rows, err := s.db.Query(ctx, query, createdAfter)
	if err != nil {
		return nil, fmt.Errorf("list pending payments: %w", err)
	}
	defer rows.Close()

	payments := make([]*domain.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// MarkPaymentPaid transitions a pending payment to paid. The status
// guard makes the transition idempotent across overlapping runs.
func (s *Store) MarkPaymentPaid(ctx context.Context, id int64) error {
	query := `UPDATE payments SET status = 'paid', paid_at = NOW()
		WHERE id = $1 AND status = 'pending'`
	if _, err := s.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("mark payment paid: %w", err)
	}
	return nil
}

func (s *Store) MarkPaymentExpired(ctx context.Context, id int64) error {
	query := `UPDATE payments SET status = 'expired'
		WHERE id = $1 AND status = 'pending'`
	if _, err := s.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("mark payment expired: %w", err)
	}
	return nil
}

// DeleteOldUnpaidPayments removes non-paid payments older than the
// retention cutoff.
func (s *Store) DeleteOldUnpaidPayments(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM payments WHERE status <> 'paid' AND created_at < $1`
	tag, err := s.db.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("delete old payments: %w", err)
	}
	return tag.RowsAffected(), nil
}
