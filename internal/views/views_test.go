package views

import (
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/guregu/null/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rec struct {
	name string
	amt  null.Int
}

func testCatalog() *Catalog[rec] {
	return NewCatalog(
		Column[rec]{Name: "name", Value: func(r rec) Value { return String(r.name) }},
		Column[rec]{Name: "amt", Summable: true, Value: func(r rec) Value { return NullInt(r.amt) }},
	)
}

func names(rows []rec) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.name
	}
	return out
}

func TestCatalog_Select(t *testing.T) {
	c := testCatalog()
	assert.Equal(t, []string{"name", "amt"}, c.Names())

	cols, err := c.Select([]string{"amt", " name "})
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "amt", cols[0].Name)
	assert.Equal(t, "name", cols[1].Name)

	_, err = c.Select([]string{"nope"})
	assert.ErrorContains(t, err, `unknown column "nope"`)

	summable := c.Summable()
	require.Len(t, summable, 1)
	assert.Equal(t, "amt", summable[0].Name)
}

func TestParseSortKey(t *testing.T) {
	assert.Equal(t, SortKey{Column: "SCID"}, ParseSortKey("SCID"))
	assert.Equal(t, SortKey{Column: "paid_at", Reverse: true}, ParseSortKey(" -paid_at"))
	assert.Equal(t, "-paid_at", ParseSortKey("-paid_at").String())
}

func TestSort_StableAndMirrored(t *testing.T) {
	col, _ := testCatalog().Lookup("amt")
	rows := []rec{
		{"a", null.IntFrom(2)},
		{"b", null.Int{}},
		{"c", null.IntFrom(1)},
		{"d", null.IntFrom(2)},
	}

	asc := append([]rec(nil), rows...)
	Sort(asc, col, false)
	assert.Equal(t, []string{"c", "a", "d", "b"}, names(asc))

	desc := append([]rec(nil), rows...)
	Sort(desc, col, true)
	assert.Equal(t, []string{"b", "d", "a", "c"}, names(desc))
}

func TestSort_OrderOverride(t *testing.T) {
	col := Column[rec]{
		Name:  "name",
		Value: func(r rec) Value { return String(r.name) },
		Order: func(r rec) Value { return NullInt(r.amt) },
	}
	rows := []rec{{"x", null.IntFrom(9)}, {"y", null.IntFrom(3)}}
	Sort(rows, col, false)
	assert.Equal(t, []string{"y", "x"}, names(rows))
}

func TestLimit(t *testing.T) {
	rows := []rec{{name: "a"}, {name: "b"}, {name: "c"}}
	assert.Len(t, Limit(rows, 2), 2)
	assert.Len(t, Limit(rows, 0), 3)
	assert.Len(t, Limit(rows, -1), 3)
	assert.Len(t, Limit(rows, 10), 3)
}

func TestSummarize(t *testing.T) {
	cols, err := testCatalog().Select([]string{"name", "amt"})
	require.NoError(t, err)

	shown := []rec{{"a", null.IntFrom(10)}, {"b", null.Int{}}}
	filtered := []rec{{"c", null.IntFrom(5)}}

	tot := Summarize(shown, filtered, cols)
	assert.Equal(t, 2, tot.Count)
	assert.Equal(t, 1, tot.FilteredCount)
	require.Contains(t, tot.Columns, "amt")
	assert.NotContains(t, tot.Columns, "name")

	amt := tot.Columns["amt"]
	assert.Equal(t, null.IntFrom(15), amt.Sum)
	assert.Equal(t, 2, amt.Computable)
	assert.Equal(t, null.IntFrom(5), amt.FilteredSum)
	assert.Equal(t, 1, amt.FilteredComputable)
}

func TestSummarize_NoDataIsNotZero(t *testing.T) {
	cols, _ := testCatalog().Select([]string{"amt"})
	tot := Summarize([]rec{{"a", null.Int{}}}, nil, cols)

	amt := tot.Columns["amt"]
	assert.False(t, amt.Sum.Valid)
	assert.False(t, amt.FilteredSum.Valid)

	data, err := json.Marshal(amt)
	require.NoError(t, err)
	assert.JSONEq(t, `{"computable":0,"filtered_computable":0}`, string(data))
}

func TestValue_Compare(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want int
	}{
		{"ints", Int(1), Int(2), -1},
		{"equal strings", String("x"), String("x"), 0},
		{"unavailable last", Unavailable(), Int(0), 1},
		{"present first", Int(0), Unavailable(), -1},
		{"both unavailable", Unavailable(), Unavailable(), 0},
		{"int against decimal", Int(2), Decimal(decimal.RequireFromString("1.5")), 1},
		{"times", Time(time.Unix(1, 0)), Time(time.Unix(2, 0)), -1},
		{"mixed kinds by kind", Int(100), String("a"), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Compare(tt.b))
		})
	}
}

func TestValue_NullConstructors(t *testing.T) {
	assert.False(t, NullInt(null.Int{}).Valid())
	assert.False(t, NullString(null.String{}).Valid())
	assert.False(t, NullTime(null.Time{}).Valid())
	assert.False(t, NullDecimal(decimal.NullDecimal{}).Valid())

	v, ok := NullInt(null.IntFrom(7)).Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(7), v)

	_, ok = String("7").Int64()
	assert.False(t, ok)
}

func TestRow_MarshalJSON(t *testing.T) {
	row := NewRow(
		[]string{"b", "a", "gone", "when", "ppm"},
		[]Value{
			String(`q"uote`),
			Int(-3),
			Unavailable(),
			Time(time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))),
			Decimal(decimal.RequireFromString("12.5")),
		},
	)
	data, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Equal(t, `{"b":"q\"uote","a":-3,"when":"2024-05-01T11:00:00Z","ppm":12.5}`, string(data))

	v, ok := row.Get("a")
	assert.True(t, ok)
	assert.Equal(t, Int(-3), v)
	_, ok = row.Get("missing")
	assert.False(t, ok)
}

func TestProject(t *testing.T) {
	cols, _ := testCatalog().Select([]string{"amt", "name"})
	rows := Project([]rec{{"a", null.IntFrom(1)}}, cols)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"amt", "name"}, rows[0].Names())
	assert.Equal(t, []Value{Int(1), String("a")}, rows[0].Values())
}
