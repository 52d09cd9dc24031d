package services

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"summard/internal/lightning"
	"summard/internal/models"
	"summard/internal/providers"
	"summard/internal/structures"
	"summard/internal/views"
	"time"

	"github.com/guregu/null/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	defaultLightningPort = 9735
	remoteUpdatesVersion = "24.02"
)

type SummaryServiceInterface interface {
	Build(ctx context.Context) (*models.Summary, error)
}

type channelRow struct {
	ch        lightning.PeerChannel
	alias     string
	uptime    views.Value
	inUpdates bool
}

func (r channelRow) remote() *lightning.ChannelUpdate {
	if !r.inUpdates || r.ch.Updates == nil {
		return nil
	}
	return r.ch.Updates.Remote
}

// channelFlags marks private (P) or unknown (E) visibility and offline (O)
// peers.
func channelFlags(private null.Bool, connected bool) string {
	var b strings.Builder
	b.WriteByte('[')
	switch {
	case !private.Valid:
		b.WriteByte('E')
	case private.Bool:
		b.WriteByte('P')
	default:
		b.WriteByte('_')
	}
	if connected {
		b.WriteByte('_')
	} else {
		b.WriteByte('O')
	}
	b.WriteByte(']')
	return b.String()
}

// scidOrder packs block, transaction and output into one sortable number.
// Channels without a short id sort last.
func scidOrder(scid string) views.Value {
	parts := strings.Split(scid, "x")
	if len(parts) != 3 {
		return views.Unavailable()
	}
	var packed int64
	for i, shift := range []uint{40, 16, 0} {
		n, err := strconv.ParseUint(parts[i], 10, 24)
		if err != nil {
			return views.Unavailable()
		}
		packed |= int64(n) << shift
	}
	return views.Int(packed)
}

func percentUs(ch lightning.PeerChannel) views.Value {
	if !ch.ToUsMsat.Valid || !ch.TotalMsat.Valid || ch.TotalMsat.Int64 == 0 {
		return views.Unavailable()
	}
	return views.Decimal(decimal.NewFromInt(ch.ToUsMsat.Int64).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(ch.TotalMsat.Int64)).
		Round(1))
}

func inboundMsat(ch lightning.PeerChannel) null.Int {
	if !ch.ToUsMsat.Valid || !ch.TotalMsat.Valid {
		return null.Int{}
	}
	return null.IntFrom(ch.TotalMsat.Int64 - ch.ToUsMsat.Int64)
}

var channelCatalog = views.NewCatalog(
	views.Column[channelRow]{Name: "OUT_SATS", Width: 10, Summable: true, Value: func(r channelRow) views.Value { return sats(r.ch.ToUsMsat.Int) }},
	views.Column[channelRow]{Name: "IN_SATS", Width: 10, Summable: true, Value: func(r channelRow) views.Value { return sats(inboundMsat(r.ch)) }},
	views.Column[channelRow]{Name: "TOTAL_SATS", Width: 10, Summable: true, Value: func(r channelRow) views.Value { return sats(r.ch.TotalMsat.Int) }},
	views.Column[channelRow]{Name: "PERC_US", Width: 7, Value: func(r channelRow) views.Value { return percentUs(r.ch) }},
	views.Column[channelRow]{
		Name:  "SCID",
		Width: 15,
		Value: func(r channelRow) views.Value {
			if !r.ch.ShortChannelID.Valid {
				return views.String("PENDING")
			}
			return views.String(r.ch.ShortChannelID.String)
		},
		Order: func(r channelRow) views.Value {
			if !r.ch.ShortChannelID.Valid {
				return views.Unavailable()
			}
			return scidOrder(r.ch.ShortChannelID.String)
		},
	},
	views.Column[channelRow]{Name: "MIN_HTLC", Width: 8, Value: func(r channelRow) views.Value { return sats(r.ch.MinimumHtlcOutMsat.Int) }},
	views.Column[channelRow]{Name: "MAX_HTLC", Width: 8, Value: func(r channelRow) views.Value { return sats(r.ch.MaximumHtlcOutMsat.Int) }},
	views.Column[channelRow]{Name: "FLAG", Width: 4, Value: func(r channelRow) views.Value { return views.String(channelFlags(r.ch.Private, r.ch.PeerConnected)) }},
	views.Column[channelRow]{Name: "BASE", Width: 4, Value: func(r channelRow) views.Value { return views.NullInt(r.ch.FeeBaseMsat.Int) }},
	views.Column[channelRow]{Name: "IN_BASE", Width: 7, Value: func(r channelRow) views.Value {
		if rem := r.remote(); rem != nil {
			return views.NullInt(rem.FeeBaseMsat.Int)
		}
		return views.Unavailable()
	}},
	views.Column[channelRow]{Name: "PPM", Width: 4, Value: func(r channelRow) views.Value { return views.NullInt(r.ch.FeeProportionalMillionths) }},
	views.Column[channelRow]{Name: "IN_PPM", Width: 6, Value: func(r channelRow) views.Value {
		if rem := r.remote(); rem != nil {
			return views.NullInt(rem.FeeProportionalMillionths)
		}
		return views.Unavailable()
	}},
	views.Column[channelRow]{
		Name:  "ALIAS",
		Width: 20,
		Value: func(r channelRow) views.Value { return views.String(r.alias) },
		Order: func(r channelRow) views.Value { return views.String(strings.ToLower(r.alias)) },
	},
	views.Column[channelRow]{Name: "PEER_ID", Width: 66, Value: func(r channelRow) views.Value { return views.String(r.ch.PeerID) }},
	views.Column[channelRow]{Name: "UPTIME", Width: 6, Value: func(r channelRow) views.Value { return r.uptime }},
	views.Column[channelRow]{Name: "HTLCS", Width: 5, Value: func(r channelRow) views.Value { return views.Int(int64(len(r.ch.Htlcs))) }},
	views.Column[channelRow]{Name: "STATE", Width: 13, Value: func(r channelRow) views.Value { return views.String(models.ShortChannelState(r.ch.State)) }},
)

// SummaryService joins the node state with the alias cache, the
// availability tracker and the ledger views into one report.
type SummaryService struct {
	conf   structures.SummaryConfig
	utf8   bool
	client lightning.Client

	alias        AliasServiceInterface
	availability AvailabilityServiceInterface
	forwards     LedgerView
	pays         LedgerView
	invoices     LedgerView

	logger providers.Logger
	now    func() time.Time
}

func NewSummaryService(
	conf *structures.Config,
	client lightning.Client,
	alias AliasServiceInterface,
	availability AvailabilityServiceInterface,
	forwards *ForwardsService,
	pays *PaysService,
	invoices *InvoicesService,
	logger providers.Logger,
) *SummaryService {
	return &SummaryService{
		conf:         conf.Summary,
		utf8:         conf.Alias.UTF8,
		client:       client,
		alias:        alias,
		availability: availability,
		forwards:     forwards,
		pays:         pays,
		invoices:     invoices,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *SummaryService) Build(ctx context.Context) (*models.Summary, error) {
	started := time.Now()
	var (
		info     *lightning.GetInfoResponse
		peers    []lightning.Peer
		channels []lightning.PeerChannel
		funds    []lightning.FundsOutput
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		info, err = s.client.GetInfo(gctx)
		return err
	})
	g.Go(func() (err error) {
		peers, err = s.client.ListPeers(gctx)
		return err
	})
	g.Go(func() (err error) {
		channels, err = s.client.ListPeerChannels(gctx)
		return err
	})
	g.Go(func() (err error) {
		funds, err = s.client.ListFunds(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("collect node state: %w", err)
	}

	s.alias.EnsureWarm(ctx)

	now := s.now()
	summary := &models.Summary{
		GeneratedAt: now,
		Info:        nodeInfo(info, peers, funds),
	}

	inUpdates, err := lightning.AtOrAboveVersion(info.Version, remoteUpdatesVersion)
	if err != nil {
		s.logger.Warnf(providers.TypeApp, "Unparsable node version %q: %v", info.Version, err)
	}

	channelPeers := make(map[string]string, len(channels))
	rows := make([]channelRow, 0, len(channels))
	for _, ch := range channels {
		if ch.ShortChannelID.Valid {
			channelPeers[ch.ShortChannelID.String] = ch.PeerID
		}
		if s.excluded(ch) {
			summary.FilteredChannels++
			continue
		}
		accumulateChannel(&summary.Info, ch)
		rows = append(rows, s.channelRow(ch, inUpdates))
	}

	key := views.ParseSortKey(s.conf.SortBy)
	if col, ok := channelCatalog.Lookup(key.Column); ok {
		views.Sort(rows, col, key.Reverse)
	}
	cols, err := channelCatalog.Select(s.conf.Columns)
	if err != nil {
		return nil, err
	}
	summary.Channels = views.Project(rows, cols)

	vc := ViewContext{
		Now:          now,
		Node:         NodeContext{ID: info.ID, Version: info.Version},
		ChannelPeers: channelPeers,
	}
	var lg errgroup.Group
	lg.Go(func() error { summary.Forwards = s.forwards.View(ctx, vc); return nil })
	lg.Go(func() error { summary.Pays = s.pays.View(ctx, vc); return nil })
	lg.Go(func() error { summary.Invoices = s.invoices.View(ctx, vc); return nil })
	_ = lg.Wait()

	s.logger.Debugf(providers.TypeApp, "Built summary of %d channels (%d filtered) in %s",
		len(summary.Channels), summary.FilteredChannels, time.Since(started))
	return summary, nil
}

func (s *SummaryService) channelRow(ch lightning.PeerChannel, inUpdates bool) channelRow {
	row := channelRow{ch: ch, alias: ch.PeerID, uptime: views.Unavailable(), inUpdates: inUpdates}
	if alias, ok := s.alias.Resolve(ch.PeerID); ok {
		row.alias = displayAlias(alias, s.utf8)
	}
	if pct, ok := s.availability.Percent(ch.PeerID); ok {
		row.uptime = views.Decimal(pct)
	}
	return row
}

func (s *SummaryService) excluded(ch lightning.PeerChannel) bool {
	for _, ex := range s.conf.ExcludeStates {
		switch ex {
		case models.ExcludePublic:
			if ch.Private.Valid && !ch.Private.Bool {
				return true
			}
		case models.ExcludePrivate:
			if ch.Private.Valid && ch.Private.Bool {
				return true
			}
		case models.ExcludeOnline:
			if ch.PeerConnected {
				return true
			}
		case models.ExcludeOffline:
			if !ch.PeerConnected {
				return true
			}
		default:
			if models.ShortChannelState(ch.State) == ex {
				return true
			}
		}
	}
	return false
}

// accumulateChannel adds one displayed channel to the node counters.
// Spendable amounts only count for channels that can route, net of reserves.
func accumulateChannel(info *models.NodeInfo, ch lightning.PeerChannel) {
	if models.IsActiveChannelState(ch.State) {
		info.NumChannels++
		if ch.PeerConnected {
			info.NumConnected++
		}
	}
	if ch.State != models.ChannelStateNormal && ch.State != models.ChannelStateSplicing {
		return
	}
	if !ch.ToUsMsat.Valid || !ch.TotalMsat.Valid {
		return
	}
	toUs := ch.ToUsMsat.Int64
	theirs := ch.TotalMsat.Int64 - toUs
	if reserve := ch.OurReserveMsat.Int64; reserve < toUs {
		info.AvailOutMsat += toUs - reserve
	}
	if reserve := ch.TheirReserveMsat.Int64; reserve < theirs {
		info.AvailInMsat += theirs - reserve
	}
}

func nodeInfo(info *lightning.GetInfoResponse, peers []lightning.Peer, funds []lightning.FundsOutput) models.NodeInfo {
	ni := models.NodeInfo{
		ID:                info.ID,
		Version:           info.Version,
		Address:           nodeAddress(info),
		NumUtxos:          len(funds),
		FeesCollectedMsat: info.FeesCollectedMsat.Int,
	}
	for _, out := range funds {
		if out.Status == "confirmed" && out.AmountMsat.Valid {
			ni.UtxoAmountMsat += out.AmountMsat.Int64
		}
	}
	for _, p := range peers {
		if p.NumChannels.Valid && p.NumChannels.Int64 == 0 {
			ni.NumGossipers++
		}
	}
	return ni
}

// nodeAddress prefers an announced ipv4 address, then any announced address,
// then the first binding.
func nodeAddress(info *lightning.GetInfoResponse) string {
	format := func(a lightning.Address) string {
		host := a.Address
		if host == "" {
			host = "missing address"
		}
		port := int64(defaultLightningPort)
		if a.Port.Valid {
			port = a.Port.Int64
		}
		return info.ID + "@" + host + ":" + strconv.FormatInt(port, 10)
	}
	if i := slices.IndexFunc(info.Address, func(a lightning.Address) bool { return a.Type == "ipv4" }); i >= 0 {
		return format(info.Address[i])
	}
	if len(info.Address) > 0 {
		return format(info.Address[0])
	}
	if len(info.Binding) > 0 {
		return format(info.Binding[0])
	}
	return "No addresses found!"
}
