package service

import (
	"context"
	"math"
	"strings"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/lightningshop/jobtrack/internal/invoice/domain"
	"github.com/lightningshop/jobtrack/internal/invoice/totals"
	"github.com/lightningshop/jobtrack/internal/money"
	"gorm.io/gorm"
)

const (
	defaultUnitLabel = "each"
	defaultQuantity  = 1.0
)

func (s *Service) ListLines(ctx context.Context, invoiceID string) ([]invoicedomain.InvoiceLine, error) {
	id, err := s.existingInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.ListLines(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	totals.SortLines(lines)
	return lines, nil
}

func (s *Service) UpsertLine(ctx context.Context, req invoicedomain.UpsertLineRequest) (invoicedomain.InvoiceLine, error) {
	invoiceID, err := parseID(req.InvoiceID)
	if err != nil {
		return invoicedomain.InvoiceLine{}, err
	}

	quantity := defaultQuantity
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if quantity < 0 || math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return invoicedomain.InvoiceLine{}, invoicedomain.ErrInvalidQuantity
	}
	if req.UnitPriceCents < 0 {
		return invoicedomain.InvoiceLine{}, invoicedomain.ErrInvalidUnitPrice
	}
	if _, err := money.CheckedMulCents(quantity, req.UnitPriceCents); err != nil {
		return invoicedomain.InvoiceLine{}, invoicedomain.ErrLineTotalTooLarge
	}
	taxable := true
	if req.Taxable != nil {
		taxable = *req.Taxable
	}
	unit := strings.TrimSpace(req.UnitLabel)
	if unit == "" {
		unit = defaultUnitLabel
	}

	line := invoicedomain.InvoiceLine{
		InvoiceID:      invoiceID,
		Description:    strings.TrimSpace(req.Description),
		Quantity:       quantity,
		UnitLabel:      unit,
		UnitPriceCents: req.UnitPriceCents,
		Taxable:        taxable,
	}

	var lineID snowflake.ID
	if strings.TrimSpace(req.ID) != "" {
		if lineID, err = parseID(req.ID); err != nil {
			return invoicedomain.InvoiceLine{}, err
		}
	}

	_, err = s.mutate(ctx, invoiceID, func(tx *gorm.DB, _ *invoicedomain.Invoice) error {
		if lineID == 0 {
			line.ID = s.genID.Generate()
			line.CreatedAt = s.clock.Now()
			if req.SortOrder != nil {
				line.SortOrder = *req.SortOrder
			} else {
				next, err := s.repo.NextLineSortOrder(ctx, tx, invoiceID)
				if err != nil {
					return err
				}
				line.SortOrder = next
			}
			return s.repo.InsertLine(ctx, tx, &line)
		}

		existing, err := s.repo.FindLineByID(ctx, tx, invoiceID, lineID)
		if err != nil {
			return err
		}
		if existing == nil {
			return invoicedomain.ErrLineNotFound
		}
		line.ID = existing.ID
		line.CreatedAt = existing.CreatedAt
		line.SortOrder = existing.SortOrder
		if req.SortOrder != nil {
			line.SortOrder = *req.SortOrder
		}
		return s.repo.UpdateLine(ctx, tx, &line)
	})
	if err != nil {
		return invoicedomain.InvoiceLine{}, err
	}
	return line, nil
}

func (s *Service) DeleteLine(ctx context.Context, invoiceID, lineID string) error {
	invID, err := parseID(invoiceID)
	if err != nil {
		return err
	}
	id, err := parseID(lineID)
	if err != nil {
		return err
	}

	_, err = s.mutate(ctx, invID, func(tx *gorm.DB, _ *invoicedomain.Invoice) error {
		existing, err := s.repo.FindLineByID(ctx, tx, invID, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return invoicedomain.ErrLineNotFound
		}
		return s.repo.DeleteLine(ctx, tx, invID, id)
	})
	return err
}

func (s *Service) existingInvoiceID(ctx context.Context, value string) (snowflake.ID, error) {
	id, err := parseID(value)
	if err != nil {
		return 0, err
	}
	inv, err := s.repo.FindInvoiceByID(ctx, s.db, id)
	if err != nil {
		return 0, err
	}
	if inv == nil {
		return 0, invoicedomain.ErrNotFound
	}
	return id, nil
}
