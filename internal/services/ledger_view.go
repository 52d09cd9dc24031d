package services

import (
	"context"
	"summard/internal/models"
	"summard/internal/providers"
	"summard/internal/structures"
	"summard/internal/views"
	"time"

	"github.com/guregu/null/v5"
	"github.com/shopspring/decimal"
)

// ViewContext is the per-request state shared by every ledger class.
type ViewContext struct {
	Now  time.Time
	Node NodeContext
	// ChannelPeers maps short channel ids to the peer on the other side.
	ChannelPeers map[string]string
}

type LedgerView interface {
	Class() string
	View(ctx context.Context, vc ViewContext) models.ClassResult
}

// classView runs the shared filter, totals, sort, limit and projection
// pipeline for one class. R is the row type the catalog reads from.
type classView[E models.LedgerEvent, R any] struct {
	agg     *Aggregator[E]
	conf    structures.LedgerConfig
	catalog *views.Catalog[R]
	logger  providers.Logger
}

func (c *classView[E, R]) Class() string { return c.agg.Class() }

func (c *classView[E, R]) view(ctx context.Context, vc ViewContext, rowsOf func(context.Context, ViewContext, []E) []R, filtered func(R) bool) models.ClassResult {
	res := models.ClassResult{
		Class:  c.agg.Class(),
		Rows:   []views.Row{},
		Hours:  c.conf.Hours,
		Limit:  c.conf.Limit,
		SortBy: c.conf.SortBy,
	}
	if c.conf.Hours <= 0 {
		res.Disabled = true
		return res
	}

	since := vc.Now.Add(-time.Duration(c.conf.Hours) * time.Hour)
	if err := c.agg.Sync(ctx, vc.Node, since); err != nil {
		c.logger.Warnf(providers.TypeApp, "%s: serving retained events: %v", res.Class, err)
		res.Stale = true
		res.Error = err.Error()
	}

	var kept, dropped []R
	for _, r := range rowsOf(ctx, vc, c.agg.Events(since)) {
		if filtered != nil && filtered(r) {
			dropped = append(dropped, r)
			continue
		}
		kept = append(kept, r)
	}
	res.Totals = views.Summarize(kept, dropped, c.catalog.Summable())

	key := views.ParseSortKey(c.conf.SortBy)
	if col, ok := c.catalog.Lookup(key.Column); ok {
		views.Sort(kept, col, key.Reverse)
	}
	kept = views.Limit(kept, c.conf.Limit)

	cols, err := c.catalog.Select(c.conf.Columns)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Rows = views.Project(kept, cols)
	return res
}

// atOrBelow reports whether v falls into the filtered bucket. A negative
// threshold disables the filter and an unavailable value never matches.
func atOrBelow(v null.Int, threshold int64) bool {
	if threshold < 0 || !v.Valid {
		return false
	}
	return v.Int64 <= threshold
}

var thousand = decimal.NewFromInt(1000)

// sats converts millisatoshis to whole satoshis, rounding half away from zero.
func sats(msat null.Int) views.Value {
	if !msat.Valid {
		return views.Unavailable()
	}
	return views.Int(decimal.NewFromInt(msat.Int64).Div(thousand).Round(0).IntPart())
}
