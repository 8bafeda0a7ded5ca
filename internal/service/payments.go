package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/evseev/channelgate/internal/config"
	"github.com/evseev/channelgate/internal/domain"
	"github.com/evseev/channelgate/internal/metrics"
	"github.com/evseev/channelgate/internal/payment"
)

const taskPendingPayments = "pending_payments"

// PaymentStore is the storage surface of the pending-payment
// reconciler.
type PaymentStore interface {
	ListPendingPayments(ctx context.Context, createdAfter time.Time) ([]*domain.Payment, error)
	MarkPaymentPaid(ctx context.Context, id int64) error
	MarkPaymentExpired(ctx context.Context, id int64) error
}

// PaymentReconciler recovers payments whose provider callback was
// lost: it polls the provider for recent pending invoices and applies
// the terminal status locally.
type PaymentReconciler struct {
	store    PaymentStore
	invoices InvoiceChecker
	events   *Events
	log      *slog.Logger
}

func NewPaymentReconciler(store PaymentStore, invoices InvoiceChecker, events *Events, log *slog.Logger) *PaymentReconciler {
	return &PaymentReconciler{
		store:    store,
		invoices: invoices,
		events:   events,
		log:      log.With("task", taskPendingPayments),
	}
}

func (r *PaymentReconciler) Run(ctx context.Context) error {
	if !r.invoices.Enabled() {
		r.log.Debug("payment provider not configured, skipping")
		return nil
	}

	cutoff := time.Now().UTC().Add(-config.PendingPaymentMaxAge)
	pending, err := r.store.ListPendingPayments(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list pending payments: %w", err)
	}

	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.checkOne(ctx, p)
	}
	return nil
}

// checkOne polls the provider for one invoice. Provider errors leave
// the payment pending for the next run; only a definitive provider
// status moves it.
func (r *PaymentReconciler) checkOne(ctx context.Context, p *domain.Payment) {
	status, err := r.invoices.GetInvoiceStatus(ctx, p.InvoiceID)
	if err != nil {
		metrics.RecordItem(taskPendingPayments, "error")
		r.log.Warn("invoice status check failed",
			"payment_id", p.ID, "invoice_id", p.InvoiceID, "error", err)
		return
	}

	switch status {
	case payment.InvoiceStatusPaid:
		if err := r.store.MarkPaymentPaid(ctx, p.ID); err != nil {
			metrics.RecordItem(taskPendingPayments, "error")
			r.log.Error("failed to mark payment paid", "payment_id", p.ID, "error", err)
			return
		}
		metrics.RecordItem(taskPendingPayments, "paid")
		r.log.Info("recovered paid invoice",
			"payment_id", p.ID, "invoice_id", p.InvoiceID, "amount", p.Amount)
		r.events.paymentConfirmed(ctx, p)

	case payment.InvoiceStatusExpired:
		if err := r.store.MarkPaymentExpired(ctx, p.ID); err != nil {
			metrics.RecordItem(taskPendingPayments, "error")
			r.log.Error("failed to mark payment expired", "payment_id", p.ID, "error", err)
			return
		}
		metrics.RecordItem(taskPendingPayments, "expired")

	default:
		// Still active at the provider, check again next run.
		metrics.RecordItem(taskPendingPayments, "pending")
	}
}
