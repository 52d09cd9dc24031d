package views

import (
	json "github.com/goccy/go-json"
	"github.com/guregu/null/v5"
)

// ColumnTotal sums one numeric column. Sum covers displayed and filtered
// events, FilteredSum only the filtered bucket. The computable counts tell
// "zero" apart from "no data".
type ColumnTotal struct {
	Sum                null.Int
	Computable         int
	FilteredSum        null.Int
	FilteredComputable int
}

func (t ColumnTotal) MarshalJSON() ([]byte, error) {
	out := struct {
		Sum                *int64 `json:"sum,omitempty"`
		Computable         int    `json:"computable"`
		FilteredSum        *int64 `json:"filtered_sum,omitempty"`
		FilteredComputable int    `json:"filtered_computable"`
	}{
		Sum:                t.Sum.Ptr(),
		Computable:         t.Computable,
		FilteredSum:        t.FilteredSum.Ptr(),
		FilteredComputable: t.FilteredComputable,
	}
	return json.Marshal(out)
}

type Totals struct {
	Count         int                    `json:"count"`
	FilteredCount int                    `json:"filtered_count"`
	Columns       map[string]ColumnTotal `json:"columns"`
}

// Summarize builds totals from the rows that passed the filters and the
// filtered bucket. It must be called before any limit is applied.
func Summarize[R any](rows, filtered []R, cols []Column[R]) Totals {
	t := Totals{
		Count:         len(rows),
		FilteredCount: len(filtered),
		Columns:       make(map[string]ColumnTotal, len(cols)),
	}
	for _, col := range cols {
		if !col.Summable {
			continue
		}
		var ct ColumnTotal
		var sum, fsum int64
		for _, r := range rows {
			if v, ok := col.Value(r).Int64(); ok {
				sum += v
				ct.Computable++
			}
		}
		for _, r := range filtered {
			if v, ok := col.Value(r).Int64(); ok {
				sum += v
				fsum += v
				ct.Computable++
				ct.FilteredComputable++
			}
		}
		if ct.Computable > 0 {
			ct.Sum = null.IntFrom(sum)
		}
		if ct.FilteredComputable > 0 {
			ct.FilteredSum = null.IntFrom(fsum)
		}
		t.Columns[col.Name] = ct
	}
	return t
}
