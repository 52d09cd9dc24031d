package services

import (
	"context"
	"summard/internal/lightning"
	"summard/internal/models"
	"summard/internal/providers"
	"summard/internal/structures"
	"summard/internal/views"
)

const ClassInvoices = "invoices"

type invoiceSource struct {
	client lightning.Client
}

func (invoiceSource) Class() string { return ClassInvoices }

func (invoiceSource) Indexed(node NodeContext) bool {
	ok, err := lightning.AtOrAboveVersion(node.Version, indexedListsVersion)
	return err == nil && ok
}

func (s invoiceSource) Fetch(ctx context.Context, req lightning.ListRequest) ([]*models.InvoiceEvent, error) {
	invoices, err := s.client.ListInvoices(ctx, req)
	if err != nil {
		return nil, err
	}
	events := make([]*models.InvoiceEvent, len(invoices))
	for i, inv := range invoices {
		events[i] = inv.Event()
	}
	return events, nil
}

var invoiceCatalog = views.NewCatalog(
	views.Column[*models.InvoiceEvent]{Name: "paid_at", Width: 19, Value: func(e *models.InvoiceEvent) views.Value { return views.NullTime(e.PaidAt) }},
	views.Column[*models.InvoiceEvent]{Name: "label", Width: 30, Value: func(e *models.InvoiceEvent) views.Value { return views.String(e.Label) }},
	views.Column[*models.InvoiceEvent]{Name: "description", Width: 30, Value: func(e *models.InvoiceEvent) views.Value { return views.NullString(e.Description) }},
	views.Column[*models.InvoiceEvent]{Name: "sats_received", Width: 13, Summable: true, Value: func(e *models.InvoiceEvent) views.Value { return sats(e.AmountReceivedMsat) }},
	views.Column[*models.InvoiceEvent]{Name: "msats_received", Width: 14, Summable: true, Value: func(e *models.InvoiceEvent) views.Value { return views.NullInt(e.AmountReceivedMsat) }},
	views.Column[*models.InvoiceEvent]{Name: "payment_hash", Width: 64, Value: func(e *models.InvoiceEvent) views.Value { return views.NullString(e.PaymentHash) }},
	views.Column[*models.InvoiceEvent]{Name: "preimage", Width: 64, Value: func(e *models.InvoiceEvent) views.Value { return views.NullString(e.Preimage) }},
)

type InvoicesService struct {
	classView[*models.InvoiceEvent, *models.InvoiceEvent]
}

func NewInvoicesService(conf *structures.Config, client lightning.Client, logger providers.Logger, metrics providers.MetricsProviderInterface) *InvoicesService {
	return &InvoicesService{
		classView: classView[*models.InvoiceEvent, *models.InvoiceEvent]{
			agg:     NewAggregator[*models.InvoiceEvent](invoiceSource{client: client}, logger, metrics),
			conf:    conf.Invoices,
			catalog: invoiceCatalog,
			logger:  logger,
		},
	}
}

func (s *InvoicesService) View(ctx context.Context, vc ViewContext) models.ClassResult {
	return s.view(ctx, vc, func(_ context.Context, _ ViewContext, events []*models.InvoiceEvent) []*models.InvoiceEvent {
		return events
	}, func(e *models.InvoiceEvent) bool {
		return atOrBelow(e.AmountReceivedMsat, s.conf.FilterAmountMsat)
	})
}
