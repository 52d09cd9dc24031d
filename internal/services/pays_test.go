package services

import (
	"context"
	"errors"
	"summard/internal/lightning"
	"summard/internal/testutil"
	"testing"
	"time"

	"github.com/guregu/null/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedPay(idx int64, hash, dest string, amount, sent int64, at time.Time) lightning.Pay {
	return lightning.Pay{
		CreatedIndex:   null.IntFrom(idx),
		PaymentHash:    hash,
		Status:         "complete",
		Destination:    null.StringFrom(dest),
		AmountMsat:     msat(amount),
		AmountSentMsat: msat(sent),
		CreatedAt:      ts(at.Add(-time.Second)),
		CompletedAt:    ts(at),
	}
}

func paysOf(pays ...lightning.Pay) func(context.Context, lightning.ListRequest) ([]lightning.Pay, error) {
	return func(_ context.Context, req lightning.ListRequest) ([]lightning.Pay, error) {
		var out []lightning.Pay
		for _, p := range pays {
			if !req.Indexed || uint64(p.CreatedIndex.Int64) >= req.Start {
				out = append(out, p)
			}
		}
		return out, nil
	}
}

func newPays(client *testutil.MockLightning, alias *stubAlias) *PaysService {
	return NewPaysService(testConfig(), client, alias, &testutil.MockLogger{}, &testutil.MockMetrics{})
}

var paysVC = ViewContext{Now: viewNow, Node: NodeContext{ID: "self", Version: "v24.11"}}

func TestPays_SkipsPaymentsToSelf(t *testing.T) {
	client := &testutil.MockLightning{ListPaysFn: paysOf(
		completedPay(0, "h0", "self", 1000, 1000, base),
		completedPay(1, "h1", "bob", 2000, 2010, base),
	)}
	s := newPays(client, &stubAlias{})

	res := s.View(context.Background(), paysVC)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "h1", strCell(t, res.Rows[0], "payment_hash"))
	assert.Equal(t, 1, res.Totals.Count)
	assert.Equal(t, int64(10), res.Totals.Columns["fee_msats"].Sum.Int64)
}

func TestPays_DestinationAlias(t *testing.T) {
	client := &testutil.MockLightning{ListPaysFn: paysOf(
		completedPay(0, "h0", "bob", 1000, 1000, base),
		completedPay(1, "h1", "dave", 1000, 1000, base),
	)}
	alias := &stubAlias{aliases: map[string]string{"bob": "Bob"}}
	s := newPays(client, alias)

	res := s.View(context.Background(), paysVC)
	require.Len(t, res.Rows, 2)
	byHash := map[string]string{}
	for _, r := range res.Rows {
		byHash[strCell(t, r, "payment_hash")] = strCell(t, r, "destination")
	}
	assert.Equal(t, "Bob", byHash["h0"])
	assert.Equal(t, "dave", byHash["h1"])
	assert.ElementsMatch(t, []string{"bob", "dave"}, alias.tracked)
}

func TestPays_MissingAmountLeavesFeeUnavailable(t *testing.T) {
	p := completedPay(0, "h0", "bob", 0, 1500, base)
	p.AmountMsat = lightning.Msat{}
	client := &testutil.MockLightning{ListPaysFn: paysOf(p, completedPay(1, "h1", "bob", 1000, 1002, base))}
	s := newPays(client, &stubAlias{})

	res := s.View(context.Background(), paysVC)
	fee := res.Totals.Columns["fee_msats"]
	assert.Equal(t, int64(2), fee.Sum.Int64)
	assert.Equal(t, 1, fee.Computable)
	assert.Equal(t, int64(2502), res.Totals.Columns["msats_sent"].Sum.Int64)
}

func TestPays_DescriptionDecodedOnce(t *testing.T) {
	p0 := completedPay(0, "h0", "bob", 1000, 1000, base)
	p0.Bolt11 = null.StringFrom("lnbc1")
	p1 := completedPay(1, "h1", "bob", 1000, 1000, base)
	p1.Bolt12 = null.StringFrom("lni1")
	p2 := completedPay(2, "h2", "bob", 1000, 1000, base)
	p2.Description = null.StringFrom("coffee")

	client := &testutil.MockLightning{
		ListPaysFn: paysOf(p0, p1, p2),
		DecodeFn: func(_ context.Context, s string) (*lightning.Decoded, error) {
			if s == "lnbc1" {
				return &lightning.Decoded{Description: null.StringFrom("tea")}, nil
			}
			return &lightning.Decoded{OfferDescription: null.StringFrom("offer")}, nil
		},
	}
	s := newPays(client, &stubAlias{})

	res := s.View(context.Background(), paysVC)
	require.Len(t, res.Rows, 3)
	byHash := map[string]string{}
	for _, r := range res.Rows {
		byHash[strCell(t, r, "payment_hash")] = strCell(t, r, "description")
	}
	assert.Equal(t, map[string]string{"h0": "tea", "h1": "offer", "h2": "coffee"}, byHash)
	assert.Equal(t, 2, client.CallCount("decode"))

	s.View(context.Background(), paysVC)
	assert.Equal(t, 2, client.CallCount("decode"))
}

func TestPays_DecodeFailureRetried(t *testing.T) {
	p := completedPay(0, "h0", "bob", 1000, 1000, base)
	p.Bolt11 = null.StringFrom("lnbc1")
	client := &testutil.MockLightning{
		ListPaysFn: paysOf(p),
		DecodeFn: func(context.Context, string) (*lightning.Decoded, error) {
			return nil, errors.New("bad invoice")
		},
	}
	s := newPays(client, &stubAlias{})

	res := s.View(context.Background(), paysVC)
	require.Len(t, res.Rows, 1)
	assert.False(t, cell(t, res.Rows[0], "description").Valid())

	s.View(context.Background(), paysVC)
	assert.Equal(t, 2, client.CallCount("decode"))
}

func TestPays_NoDecodeWithoutDescriptionColumn(t *testing.T) {
	p := completedPay(0, "h0", "bob", 1000, 1000, base)
	p.Bolt11 = null.StringFrom("lnbc1")
	client := &testutil.MockLightning{ListPaysFn: paysOf(p)}
	conf := testConfig()
	conf.Pays.Columns = []string{"payment_hash", "sats_sent"}
	s := NewPaysService(conf, client, &stubAlias{}, &testutil.MockLogger{}, &testutil.MockMetrics{})

	s.View(context.Background(), paysVC)
	assert.Zero(t, client.CallCount("decode"))
}

func TestPays_IndexedOnlyFrom2411(t *testing.T) {
	var indexed []bool
	client := &testutil.MockLightning{ListPaysFn: func(_ context.Context, req lightning.ListRequest) ([]lightning.Pay, error) {
		indexed = append(indexed, req.Indexed)
		return nil, nil
	}}
	s := newPays(client, &stubAlias{})

	s.View(context.Background(), ViewContext{Now: viewNow, Node: NodeContext{Version: "v24.08.1"}})
	s.View(context.Background(), ViewContext{Now: viewNow, Node: NodeContext{Version: "v24.11"}})
	assert.Equal(t, []bool{false, true}, indexed)
}

func TestPays_PendingNotShown(t *testing.T) {
	p := completedPay(0, "h0", "bob", 1000, 1000, base)
	p.Status = "pending"
	p.CompletedAt = lightning.Timestamp{}
	client := &testutil.MockLightning{ListPaysFn: paysOf(p)}
	s := newPays(client, &stubAlias{})

	res := s.View(context.Background(), paysVC)
	assert.Empty(t, res.Rows)
	assert.Zero(t, res.Totals.Count)
}

func TestPays_RetriedPaymentIsNotAReset(t *testing.T) {
	attempt := completedPay(0, "h", "bob", 1000, 1005, base)
	attempt.Status = "pending"
	attempt.CompletedAt = lightning.Timestamp{}
	pays := []lightning.Pay{attempt}
	client := &testutil.MockLightning{
		ListPaysFn: func(ctx context.Context, req lightning.ListRequest) ([]lightning.Pay, error) {
			return paysOf(pays...)(ctx, req)
		},
	}
	metrics := &testutil.MockMetrics{}
	s := NewPaysService(testConfig(), client, &stubAlias{}, &testutil.MockLogger{}, metrics)

	res := s.View(context.Background(), paysVC)
	assert.Empty(t, res.Rows)

	// The first attempt failed and the retry under the same hash succeeded.
	failed := attempt
	failed.Status = "failed"
	pays = []lightning.Pay{failed, completedPay(1, "h", "bob", 1000, 1003, base)}

	res = s.View(context.Background(), paysVC)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "h", strCell(t, res.Rows[0], "payment_hash"))
	assert.Equal(t, int64(3), res.Totals.Columns["fee_msats"].Sum.Int64)
	assert.Zero(t, metrics.Resets(ClassPays))
	assert.Equal(t, []uint64{0, 0}, client.StartsOf("listpays"))
}
