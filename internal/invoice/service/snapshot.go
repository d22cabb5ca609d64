package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/lightningshop/jobtrack/internal/changefeed"
	invoicedomain "github.com/lightningshop/jobtrack/internal/invoice/domain"
	"github.com/lightningshop/jobtrack/internal/invoice/totals"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) Snapshot(ctx context.Context, id string) (*invoicedomain.Snapshot, error) {
	invoiceID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.snapshot(ctx, s.db, invoiceID)
}

func (s *Service) ObserveSnapshot(ctx context.Context, id string) (<-chan *invoicedomain.Snapshot, error) {
	invoiceID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return changefeed.Follow(ctx, s.hub, changefeed.InvoiceTopic(invoiceID), s.log, func(ctx context.Context) (*invoicedomain.Snapshot, error) {
		return s.snapshot(ctx, s.db, invoiceID)
	})
}

func (s *Service) Snapshots(ctx context.Context) ([]invoicedomain.Snapshot, error) {
	invoices, err := s.repo.ListAllInvoices(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return []invoicedomain.Snapshot{}, nil
	}

	ids := make([]snowflake.ID, 0, len(invoices))
	for _, inv := range invoices {
		ids = append(ids, inv.ID)
	}
	lines, err := s.repo.ListLines(ctx, s.db, ids...)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, s.db, ids...)
	if err != nil {
		return nil, err
	}

	linesByInvoice := make(map[snowflake.ID][]invoicedomain.InvoiceLine, len(invoices))
	for _, line := range lines {
		linesByInvoice[line.InvoiceID] = append(linesByInvoice[line.InvoiceID], line)
	}
	paymentsByInvoice := make(map[snowflake.ID][]invoicedomain.Payment, len(invoices))
	for _, p := range payments {
		paymentsByInvoice[p.InvoiceID] = append(paymentsByInvoice[p.InvoiceID], p)
	}

	snapshots := make([]invoicedomain.Snapshot, 0, len(invoices))
	for _, inv := range invoices {
		snapshots = append(snapshots, totals.Compute(inv, linesByInvoice[inv.ID], paymentsByInvoice[inv.ID]))
	}
	return snapshots, nil
}

func (s *Service) SyncStatus(ctx context.Context, id string) (invoicedomain.InvoiceStatus, error) {
	invoiceID, err := parseID(id)
	if err != nil {
		return "", err
	}
	inv, err := s.mutate(ctx, invoiceID, nil)
	if err != nil {
		return "", err
	}
	return inv.Status, nil
}

func (s *Service) snapshot(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) (*invoicedomain.Snapshot, error) {
	inv, err := s.repo.FindInvoiceByID(ctx, tx, invoiceID)
	if err != nil || inv == nil {
		return nil, err
	}
	return s.compute(ctx, tx, *inv)
}

func (s *Service) compute(ctx context.Context, tx *gorm.DB, inv invoicedomain.Invoice) (*invoicedomain.Snapshot, error) {
	lines, err := s.repo.ListLines(ctx, tx, inv.ID)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, tx, inv.ID)
	if err != nil {
		return nil, err
	}
	snap := totals.Compute(inv, lines, payments)
	return &snap, nil
}

// mutate runs fn against the locked invoice row and reconciles the status in
// the same transaction. fn may be nil for a bare reconcile. Observers are
// notified when fn ran or the status moved.
func (s *Service) mutate(ctx context.Context, invoiceID snowflake.ID, fn func(tx *gorm.DB, inv *invoicedomain.Invoice) error) (*invoicedomain.Invoice, error) {
	var (
		result  *invoicedomain.Invoice
		from    invoicedomain.InvoiceStatus
		changed bool
	)

	err := s.guard.Do(ctx, changefeed.InvoiceTopic(invoiceID), func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			inv, err := s.repo.FindInvoiceByIDForUpdate(ctx, tx, invoiceID)
			if err != nil {
				return err
			}
			if inv == nil {
				return invoicedomain.ErrNotFound
			}
			if fn != nil {
				if err := fn(tx, inv); err != nil {
					return err
				}
			}

			snap, err := s.compute(ctx, tx, *inv)
			if err != nil {
				return err
			}
			next := totals.NextStatus(*snap)
			from = inv.Status
			if next != inv.Status {
				inv.Status = next
				inv.UpdatedAt = s.clock.Now()
				if err := s.repo.UpdateStatus(ctx, tx, inv.ID, next, inv.UpdatedAt); err != nil {
					return err
				}
				changed = true
			}
			result = inv
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.log.Info("invoice status reconciled",
			zap.String("invoice_id", invoiceID.String()),
			zap.String("from", string(from)),
			zap.String("to", string(result.Status)),
		)
		if s.recorder != nil {
			s.recorder.RecordStatusTransition(ctx, from, result.Status)
		}
	}
	if fn != nil || changed {
		s.notify(changefeed.OpUpsert, invoiceID)
	}
	return result, nil
}
