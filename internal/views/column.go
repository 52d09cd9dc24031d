package views

import (
	"fmt"
	"strings"
)

// Column is one tagged column variant of a table over row type R.
type Column[R any] struct {
	Name     string
	Width    int
	Summable bool
	Value    func(R) Value
	// Order overrides Value as the sort key when set.
	Order func(R) Value
}

func (c Column[R]) sortValue(r R) Value {
	if c.Order != nil {
		return c.Order(r)
	}
	return c.Value(r)
}

// Catalog is the closed set of columns a table can show.
type Catalog[R any] struct {
	columns []Column[R]
	index   map[string]int
}

func NewCatalog[R any](columns ...Column[R]) *Catalog[R] {
	c := &Catalog[R]{
		columns: columns,
		index:   make(map[string]int, len(columns)),
	}
	for i, col := range columns {
		c.index[col.Name] = i
	}
	return c
}

func (c *Catalog[R]) Names() []string {
	names := make([]string, len(c.columns))
	for i, col := range c.columns {
		names[i] = col.Name
	}
	return names
}

func (c *Catalog[R]) Lookup(name string) (Column[R], bool) {
	i, ok := c.index[strings.TrimSpace(name)]
	if !ok {
		return Column[R]{}, false
	}
	return c.columns[i], true
}

// Select resolves names into columns keeping the requested order.
func (c *Catalog[R]) Select(names []string) ([]Column[R], error) {
	cols := make([]Column[R], 0, len(names))
	for _, name := range names {
		col, ok := c.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown column %q", name)
		}
		cols = append(cols, col)
	}
	return cols, nil
}

// Summable returns every summable column of the catalog.
func (c *Catalog[R]) Summable() []Column[R] {
	var cols []Column[R]
	for _, col := range c.columns {
		if col.Summable {
			cols = append(cols, col)
		}
	}
	return cols
}
