package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/lightningshop/jobtrack/internal/invoice/domain"
	"github.com/lightningshop/jobtrack/internal/invoice/totals"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) ListPayments(ctx context.Context, invoiceID string) ([]invoicedomain.Payment, error) {
	id, err := s.existingInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	totals.SortPayments(payments)
	return payments, nil
}

func (s *Service) UpsertPayment(ctx context.Context, req invoicedomain.UpsertPaymentRequest) (invoicedomain.Payment, error) {
	invoiceID, err := parseID(req.InvoiceID)
	if err != nil {
		return invoicedomain.Payment{}, err
	}
	if req.AmountCents < 0 {
		return invoicedomain.Payment{}, invoicedomain.ErrInvalidAmount
	}
	method := invoicedomain.PaymentMethod(strings.ToUpper(strings.TrimSpace(string(req.Method))))
	if method == "" {
		method = invoicedomain.PaymentMethodOther
	}
	if !method.Valid() {
		return invoicedomain.Payment{}, invoicedomain.ErrInvalidPaymentMethod
	}

	payment := invoicedomain.Payment{
		InvoiceID:   invoiceID,
		AmountCents: req.AmountCents,
		Method:      method,
		Date:        dateOf(s.clock.Now()),
		Note:        strings.TrimSpace(req.Note),
	}
	if req.Date != nil && !req.Date.IsZero() {
		payment.Date = dateOf(*req.Date)
	}

	var paymentID snowflake.ID
	if strings.TrimSpace(req.ID) != "" {
		if paymentID, err = parseID(req.ID); err != nil {
			return invoicedomain.Payment{}, err
		}
	}

	inv, err := s.mutate(ctx, invoiceID, func(tx *gorm.DB, _ *invoicedomain.Invoice) error {
		if paymentID == 0 {
			payment.ID = s.genID.Generate()
			payment.CreatedAt = s.clock.Now()
			return s.repo.InsertPayment(ctx, tx, &payment)
		}

		existing, err := s.repo.FindPaymentByID(ctx, tx, invoiceID, paymentID)
		if err != nil {
			return err
		}
		if existing == nil {
			return invoicedomain.ErrPaymentNotFound
		}
		payment.ID = existing.ID
		payment.CreatedAt = existing.CreatedAt
		return s.repo.UpdatePayment(ctx, tx, &payment)
	})
	if err != nil {
		return invoicedomain.Payment{}, err
	}

	s.log.Info("payment recorded",
		zap.String("invoice_id", invoiceID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.Int64("amount_cents", payment.AmountCents),
		zap.String("status", string(inv.Status)),
	)
	return payment, nil
}

func (s *Service) DeletePayment(ctx context.Context, invoiceID, paymentID string) error {
	invID, err := parseID(invoiceID)
	if err != nil {
		return err
	}
	id, err := parseID(paymentID)
	if err != nil {
		return err
	}

	_, err = s.mutate(ctx, invID, func(tx *gorm.DB, _ *invoicedomain.Invoice) error {
		existing, err := s.repo.FindPaymentByID(ctx, tx, invID, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return invoicedomain.ErrPaymentNotFound
		}
		return s.repo.DeletePayment(ctx, tx, invID, id)
	})
	return err
}
