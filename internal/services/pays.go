package services

import (
	"context"
	"slices"
	"summard/internal/lightning"
	"summard/internal/models"
	"summard/internal/providers"
	"summard/internal/structures"
	"summard/internal/views"
	"sync"

	"github.com/guregu/null/v5"
)

const ClassPays = "pays"

const indexedPaysVersion = "24.11"

type paySource struct {
	client lightning.Client
}

func (paySource) Class() string { return ClassPays }

func (paySource) Indexed(node NodeContext) bool {
	ok, err := lightning.AtOrAboveVersion(node.Version, indexedPaysVersion)
	return err == nil && ok
}

func (s paySource) Fetch(ctx context.Context, req lightning.ListRequest) ([]*models.PayEvent, error) {
	pays, err := s.client.ListPays(ctx, req)
	if err != nil {
		return nil, err
	}
	events := make([]*models.PayEvent, len(pays))
	for i, p := range pays {
		events[i] = p.Event()
	}
	return events, nil
}

type payRow struct {
	ev          *models.PayEvent
	destination views.Value
	description views.Value
}

var payCatalog = views.NewCatalog(
	views.Column[payRow]{Name: "completed_at", Width: 19, Value: func(r payRow) views.Value { return views.NullTime(r.ev.SettledAt()) }},
	views.Column[payRow]{Name: "payment_hash", Width: 64, Value: func(r payRow) views.Value { return views.String(r.ev.PaymentHash) }},
	views.Column[payRow]{Name: "sats_requested", Width: 14, Summable: true, Value: func(r payRow) views.Value { return sats(r.ev.AmountMsat) }},
	views.Column[payRow]{Name: "msats_requested", Width: 15, Summable: true, Value: func(r payRow) views.Value { return views.NullInt(r.ev.AmountMsat) }},
	views.Column[payRow]{Name: "sats_sent", Width: 10, Summable: true, Value: func(r payRow) views.Value { return sats(r.ev.AmountSentMsat) }},
	views.Column[payRow]{Name: "msats_sent", Width: 13, Summable: true, Value: func(r payRow) views.Value { return views.NullInt(r.ev.AmountSentMsat) }},
	views.Column[payRow]{Name: "fee_sats", Width: 8, Summable: true, Value: func(r payRow) views.Value { return sats(r.ev.FeeMsat()) }},
	views.Column[payRow]{Name: "fee_msats", Width: 11, Summable: true, Value: func(r payRow) views.Value { return views.NullInt(r.ev.FeeMsat()) }},
	views.Column[payRow]{Name: "destination", Width: 20, Value: func(r payRow) views.Value { return r.destination }, Order: func(r payRow) views.Value { return foldAlias(r.destination) }},
	views.Column[payRow]{Name: "description", Width: 30, Value: func(r payRow) views.Value { return r.description }},
	views.Column[payRow]{Name: "preimage", Width: 64, Value: func(r payRow) views.Value { return views.NullString(r.ev.Preimage) }},
)

type PaysService struct {
	classView[*models.PayEvent, payRow]
	client      lightning.Client
	alias       AliasServiceInterface
	utf8Aliases bool
	describe    bool

	descMu       sync.Mutex
	descriptions map[string]null.String
}

func NewPaysService(conf *structures.Config, client lightning.Client, alias AliasServiceInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) *PaysService {
	return &PaysService{
		classView: classView[*models.PayEvent, payRow]{
			agg:     NewAggregator[*models.PayEvent](paySource{client: client}, logger, metrics),
			conf:    conf.Pays,
			catalog: payCatalog,
			logger:  logger,
		},
		client:       client,
		alias:        alias,
		utf8Aliases:  conf.Alias.UTF8,
		describe:     slices.Contains(conf.Pays.Columns, "description"),
		descriptions: make(map[string]null.String),
	}
}

func (s *PaysService) View(ctx context.Context, vc ViewContext) models.ClassResult {
	return s.view(ctx, vc, s.rows, nil)
}

func (s *PaysService) rows(ctx context.Context, vc ViewContext, events []*models.PayEvent) []payRow {
	rows := make([]payRow, 0, len(events))
	var destinations []string
	for _, ev := range events {
		if ev.Destination.Valid && ev.Destination.String == vc.Node.ID {
			continue
		}
		row := payRow{ev: ev, destination: views.NullString(ev.Destination), description: views.NullString(ev.Description)}
		if ev.Destination.Valid {
			destinations = append(destinations, ev.Destination.String)
			if alias, ok := s.alias.Resolve(ev.Destination.String); ok {
				row.destination = views.String(displayAlias(alias, s.utf8Aliases))
			}
		}
		if s.describe && !ev.Description.Valid {
			row.description = views.NullString(s.decodeDescription(ctx, ev))
		}
		rows = append(rows, row)
	}
	if len(destinations) > 0 {
		s.alias.Track(destinations...)
	}
	return rows
}

// decodeDescription asks the node to decode the pay's invoice or offer.
// Successful decodes are cached per string; failures stay unavailable.
func (s *PaysService) decodeDescription(ctx context.Context, ev *models.PayEvent) null.String {
	invoice := ev.Bolt11
	if !invoice.Valid {
		invoice = ev.Bolt12
	}
	if !invoice.Valid || invoice.String == "" {
		return null.String{}
	}

	s.descMu.Lock()
	desc, ok := s.descriptions[invoice.String]
	s.descMu.Unlock()
	if ok {
		return desc
	}

	decoded, err := s.client.Decode(ctx, invoice.String)
	if err != nil {
		s.logger.Debugf(providers.TypeApp, "decode %s: %v", ev.PaymentHash, err)
		return null.String{}
	}
	desc = decoded.Description
	if !desc.Valid {
		desc = decoded.OfferDescription
	}
	s.descMu.Lock()
	s.descriptions[invoice.String] = desc
	s.descMu.Unlock()
	return desc
}
