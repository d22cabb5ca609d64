// Package export renders invoices to PDF and stores the result.
package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/lightningshop/jobtrack/internal/config"
	invoicedomain "github.com/lightningshop/jobtrack/internal/invoice/domain"
	"github.com/lightningshop/jobtrack/internal/providers/pdf"
	"github.com/lightningshop/jobtrack/internal/providers/storage"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Recorder observes export outcomes.
type Recorder interface {
	RecordExport(ctx context.Context, driver string, size int64, err error)
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Invoices invoicedomain.Service
	PDF      pdf.Provider
	Store    storage.Store
	Settings *config.SettingsHolder
	Recorder Recorder `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	invoices invoicedomain.Service
	pdf      pdf.Provider
	store    storage.Store
	settings *config.SettingsHolder
	recorder Recorder
}

func New(p Params) *Service {
	return &Service{
		log:      p.Log.Named("export.service"),
		invoices: p.Invoices,
		pdf:      p.PDF,
		store:    p.Store,
		settings: p.Settings,
		recorder: p.Recorder,
	}
}

var Module = fx.Module("export.service",
	fx.Provide(New),
)

// Document is a rendered invoice that has not been stored.
type Document struct {
	Filename string
	Body     []byte
}

// RenderPDF lays out the current snapshot of an invoice.
func (s *Service) RenderPDF(ctx context.Context, invoiceID string) (Document, error) {
	snap, err := s.invoices.Snapshot(ctx, invoiceID)
	if err != nil {
		return Document{}, err
	}
	if snap == nil {
		return Document{}, invoicedomain.ErrNotFound
	}

	body, err := s.pdf.GenerateInvoice(ctx, pdf.NewInvoiceData(*snap, s.settings.Get()))
	if err != nil {
		return Document{}, err
	}
	return Document{Filename: ArtifactKey(snap.Invoice.InvoiceNumber), Body: body}, nil
}

// ExportPDF renders an invoice and writes it to the artifact store.
func (s *Service) ExportPDF(ctx context.Context, invoiceID string) (storage.Artifact, error) {
	doc, err := s.RenderPDF(ctx, invoiceID)
	if err != nil {
		return storage.Artifact{}, err
	}

	art, err := s.store.Put(ctx, doc.Filename, pdf.ContentType, doc.Body)
	if s.recorder != nil {
		s.recorder.RecordExport(ctx, s.store.Driver(), int64(len(doc.Body)), err)
	}
	if err != nil {
		s.log.Error("invoice export failed",
			zap.String("invoice_id", invoiceID),
			zap.String("driver", s.store.Driver()),
			zap.Error(err),
		)
		return storage.Artifact{}, fmt.Errorf("store %s: %w", doc.Filename, err)
	}

	s.log.Info("invoice exported",
		zap.String("invoice_id", invoiceID),
		zap.String("key", art.Key),
		zap.Int64("size", art.Size),
	)
	return art, nil
}

// ArtifactKey names the PDF of an invoice, e.g. "invoice-inv-20240305-q7k2zd.pdf".
func ArtifactKey(invoiceNumber string) string {
	name := slug.Make(strings.TrimSpace(invoiceNumber))
	if name == "" {
		name = "draft"
	}
	return "invoice-" + name + ".pdf"
}
