package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/evseev/channelgate/internal/domain"
	"github.com/evseev/channelgate/internal/payment"
)

func TestPaymentReconciler_PaidInvoiceConfirmsPayment(t *testing.T) {
	store := new(mockStore)
	invoices := new(mockInvoices)

	p := &domain.Payment{ID: 1, UserID: 10, InvoiceID: "555", Status: domain.PaymentStatusPending}

	invoices.On("Enabled").Return(true)
	store.On("ListPendingPayments", mock.Anything, mock.Anything).Return([]*domain.Payment{p}, nil)
	invoices.On("GetInvoiceStatus", mock.Anything, "555").Return(payment.InvoiceStatusPaid, nil)
	store.On("MarkPaymentPaid", mock.Anything, int64(1)).Return(nil)

	confirmed := 0
	events := &Events{PaymentConfirmed: func(ctx context.Context, got *domain.Payment) {
		confirmed++
		require.Equal(t, p.ID, got.ID)
	}}

	r := NewPaymentReconciler(store, invoices, events, testLogger())
	require.NoError(t, r.Run(context.Background()))

	require.Equal(t, 1, confirmed)
	store.AssertExpectations(t)
}

func TestPaymentReconciler_ExpiredInvoiceExpiresPayment(t *testing.T) {
	store := new(mockStore)
	invoices := new(mockInvoices)

	p := &domain.Payment{ID: 2, InvoiceID: "556", Status: domain.PaymentStatusPending}

	invoices.On("Enabled").Return(true)
	store.On("ListPendingPayments", mock.Anything, mock.Anything).Return([]*domain.Payment{p}, nil)
	invoices.On("GetInvoiceStatus", mock.Anything, "556").Return(payment.InvoiceStatusExpired, nil)
	store.On("MarkPaymentExpired", mock.Anything, int64(2)).Return(nil)

	r := NewPaymentReconciler(store, invoices, nil, testLogger())
	require.NoError(t, r.Run(context.Background()))

	store.AssertExpectations(t)
}

func TestPaymentReconciler_ActiveInvoiceStaysPending(t *testing.T) {
	store := new(mockStore)
	invoices := new(mockInvoices)

	p := &domain.Payment{ID: 3, InvoiceID: "557", Status: domain.PaymentStatusPending}

	invoices.On("Enabled").Return(true)
	store.On("ListPendingPayments", mock.Anything, mock.Anything).Return([]*domain.Payment{p}, nil)
	invoices.On("GetInvoiceStatus", mock.Anything, "557").Return(payment.InvoiceStatusActive, nil)

	r := NewPaymentReconciler(store, invoices, nil, testLogger())
	require.NoError(t, r.Run(context.Background()))

	store.AssertNotCalled(t, "MarkPaymentPaid", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "MarkPaymentExpired", mock.Anything, mock.Anything)
}

func TestPaymentReconciler_ProviderErrorLeavesPaymentPending(t *testing.T) {
	store := new(mockStore)
	invoices := new(mockInvoices)

	p := &domain.Payment{ID: 4, InvoiceID: "558", Status: domain.PaymentStatusPending}

	invoices.On("Enabled").Return(true)
	store.On("ListPendingPayments", mock.Anything, mock.Anything).Return([]*domain.Payment{p}, nil)
	invoices.On("GetInvoiceStatus", mock.Anything, "558").Return("", errors.New("provider 500"))

	r := NewPaymentReconciler(store, invoices, nil, testLogger())
	require.NoError(t, r.Run(context.Background()))

	store.AssertNotCalled(t, "MarkPaymentPaid", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "MarkPaymentExpired", mock.Anything, mock.Anything)
}

func TestPaymentReconciler_LookbackIs24Hours(t *testing.T) {
	store := new(mockStore)
	invoices := new(mockInvoices)

	invoices.On("Enabled").Return(true)
	store.On("ListPendingPayments", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		age := time.Since(cutoff)
		return age > 23*time.Hour && age < 25*time.Hour
	})).Return([]*domain.Payment{}, nil)

	r := NewPaymentReconciler(store, invoices, nil, testLogger())
	require.NoError(t, r.Run(context.Background()))

	store.AssertExpectations(t)
}

func TestPaymentReconciler_DisabledProviderIsNoop(t *testing.T) {
	store := new(mockStore)
	invoices := new(mockInvoices)

	invoices.On("Enabled").Return(false)

	r := NewPaymentReconciler(store, invoices, nil, testLogger())
	require.NoError(t, r.Run(context.Background()))

	store.AssertNotCalled(t, "ListPendingPayments", mock.Anything, mock.Anything)
}
