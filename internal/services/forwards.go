package services

import (
	"context"
	"strings"
	"summard/internal/lightning"
	"summard/internal/models"
	"summard/internal/providers"
	"summard/internal/structures"
	"summard/internal/views"

	"github.com/shopspring/decimal"
)

const ClassForwards = "forwards"

// Created-index paging for listforwards and listinvoices.
const indexedListsVersion = "23.08"

type forwardSource struct {
	client lightning.Client
}

func (forwardSource) Class() string { return ClassForwards }

func (forwardSource) Indexed(node NodeContext) bool {
	ok, err := lightning.AtOrAboveVersion(node.Version, indexedListsVersion)
	return err == nil && ok
}

func (s forwardSource) Fetch(ctx context.Context, req lightning.ListRequest) ([]*models.ForwardEvent, error) {
	forwards, err := s.client.ListForwards(ctx, req)
	if err != nil {
		return nil, err
	}
	events := make([]*models.ForwardEvent, len(forwards))
	for i, f := range forwards {
		events[i] = f.Event()
	}
	return events, nil
}

type forwardRow struct {
	ev       *models.ForwardEvent
	inAlias  views.Value
	outAlias views.Value
}

var million = decimal.NewFromInt(1_000_000)

func effFeePPM(ev *models.ForwardEvent) views.Value {
	fee := ev.FeeMsat()
	if !fee.Valid || !ev.OutMsat.Valid || ev.OutMsat.Int64 == 0 {
		return views.Unavailable()
	}
	ppm := decimal.NewFromInt(fee.Int64).Mul(million).Div(decimal.NewFromInt(ev.OutMsat.Int64))
	return views.Decimal(ppm.Round(0))
}

var forwardCatalog = views.NewCatalog(
	views.Column[forwardRow]{Name: "received_time", Width: 19, Value: func(r forwardRow) views.Value { return views.NullTime(r.ev.ReceivedTime) }},
	views.Column[forwardRow]{Name: "resolved_time", Width: 19, Value: func(r forwardRow) views.Value { return views.NullTime(r.ev.ResolvedTime) }},
	views.Column[forwardRow]{Name: "in_channel", Width: 15, Value: func(r forwardRow) views.Value { return views.NullString(r.ev.InChannel) }},
	views.Column[forwardRow]{Name: "out_channel", Width: 15, Value: func(r forwardRow) views.Value { return views.NullString(r.ev.OutChannel) }},
	views.Column[forwardRow]{Name: "in_alias", Width: 20, Value: func(r forwardRow) views.Value { return r.inAlias }, Order: func(r forwardRow) views.Value { return foldAlias(r.inAlias) }},
	views.Column[forwardRow]{Name: "out_alias", Width: 20, Value: func(r forwardRow) views.Value { return r.outAlias }, Order: func(r forwardRow) views.Value { return foldAlias(r.outAlias) }},
	views.Column[forwardRow]{Name: "in_sats", Width: 10, Summable: true, Value: func(r forwardRow) views.Value { return sats(r.ev.InMsat) }},
	views.Column[forwardRow]{Name: "in_msats", Width: 13, Summable: true, Value: func(r forwardRow) views.Value { return views.NullInt(r.ev.InMsat) }},
	views.Column[forwardRow]{Name: "out_sats", Width: 10, Summable: true, Value: func(r forwardRow) views.Value { return sats(r.ev.OutMsat) }},
	views.Column[forwardRow]{Name: "out_msats", Width: 13, Summable: true, Value: func(r forwardRow) views.Value { return views.NullInt(r.ev.OutMsat) }},
	views.Column[forwardRow]{Name: "fee_sats", Width: 8, Summable: true, Value: func(r forwardRow) views.Value { return sats(r.ev.FeeMsat()) }},
	views.Column[forwardRow]{Name: "fee_msats", Width: 11, Summable: true, Value: func(r forwardRow) views.Value { return views.NullInt(r.ev.FeeMsat()) }},
	views.Column[forwardRow]{Name: "eff_fee_ppm", Width: 11, Value: func(r forwardRow) views.Value { return effFeePPM(r.ev) }},
)

// foldAlias makes alias ordering case-insensitive.
func foldAlias(v views.Value) views.Value {
	if s, ok := v.Str(); ok {
		return views.String(strings.ToLower(s))
	}
	return v
}

type ForwardsService struct {
	classView[*models.ForwardEvent, forwardRow]
	alias       AliasServiceInterface
	substitute  bool
	utf8Aliases bool
}

func NewForwardsService(conf *structures.Config, client lightning.Client, alias AliasServiceInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) *ForwardsService {
	return &ForwardsService{
		classView: classView[*models.ForwardEvent, forwardRow]{
			agg:     NewAggregator[*models.ForwardEvent](forwardSource{client: client}, logger, metrics),
			conf:    conf.Forwards,
			catalog: forwardCatalog,
			logger:  logger,
		},
		alias:       alias,
		substitute:  conf.Forwards.Alias,
		utf8Aliases: conf.Alias.UTF8,
	}
}

func (s *ForwardsService) View(ctx context.Context, vc ViewContext) models.ClassResult {
	return s.view(ctx, vc, s.rows, func(r forwardRow) bool {
		return atOrBelow(r.ev.InMsat, s.conf.FilterAmountMsat) || atOrBelow(r.ev.FeeMsat(), s.conf.FilterFeeMsat)
	})
}

func (s *ForwardsService) rows(_ context.Context, vc ViewContext, events []*models.ForwardEvent) []forwardRow {
	rows := make([]forwardRow, len(events))
	for i, ev := range events {
		rows[i] = forwardRow{
			ev:       ev,
			inAlias:  s.channelAlias(vc, ev.InChannel.String, ev.InChannel.Valid),
			outAlias: s.channelAlias(vc, ev.OutChannel.String, ev.OutChannel.Valid),
		}
	}
	return rows
}

// channelAlias names the peer behind scid, falling back to the scid itself.
func (s *ForwardsService) channelAlias(vc ViewContext, scid string, valid bool) views.Value {
	if !valid {
		return views.Unavailable()
	}
	if s.substitute {
		if peer, ok := vc.ChannelPeers[scid]; ok {
			if alias, ok := s.alias.Resolve(peer); ok {
				return views.String(displayAlias(alias, s.utf8Aliases))
			}
		}
	}
	return views.String(scid)
}
