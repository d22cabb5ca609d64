// Package pdf lays out invoice documents.
package pdf

import (
	"context"

	"go.uber.org/fx"
)

const ContentType = "application/pdf"

type Provider interface {
	GenerateInvoice(ctx context.Context, data InvoiceData) ([]byte, error)
}

var Module = fx.Module("pdf",
	fx.Provide(New),
)
