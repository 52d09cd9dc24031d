package providers

import (
	"errors"
	"fmt"
	"slices"
	"summard/internal/models"
	"summard/internal/structures"
	"summard/internal/views"

	"github.com/gookit/validate"
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

func (cv *CnfValidator) Validate() error {
	v := validate.Struct(cv.conf)
	if !v.Validate() {
		return fmt.Errorf("invalid configuration: %s", v.Errors.One())
	}

	var errs []error
	c := cv.conf

	if c.Alias.MissingThreshold < 0 || c.Alias.MissingThreshold > 1 {
		errs = append(errs, fmt.Errorf("alias.missingThreshold must be within [0,1], got %v", c.Alias.MissingThreshold))
	}
	if c.Alias.FastInterval > c.Alias.FastMaxInterval {
		errs = append(errs, errors.New("alias.fastInterval must not exceed alias.fastMaxInterval"))
	}
	if c.Availability.Window < c.Availability.Interval {
		errs = append(errs, errors.New("availability.window must be at least availability.interval"))
	}
	if c.Availability.MaxGap < 0 {
		errs = append(errs, errors.New("availability.maxGap must not be negative"))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache.ttl must not be negative"))
	}

	errs = append(errs, validateColumns("summary", c.Summary.Columns, c.Summary.SortBy, models.ChannelColumns)...)
	errs = append(errs, validateExcludeStates(c.Summary.ExcludeStates)...)
	errs = append(errs, validateLedger("forwards", c.Forwards, models.ForwardColumns)...)
	errs = append(errs, validateLedger("pays", c.Pays, models.PayColumns)...)
	errs = append(errs, validateLedger("invoices", c.Invoices, models.InvoiceColumns)...)

	return errors.Join(errs...)
}

func validateLedger(name string, lc structures.LedgerConfig, known []string) []error {
	var errs []error
	if lc.Hours < 0 {
		errs = append(errs, fmt.Errorf("%s.hours must not be negative", name))
	}
	if lc.Limit < 0 {
		errs = append(errs, fmt.Errorf("%s.limit must not be negative", name))
	}
	if lc.FilterAmountMsat < -1 {
		errs = append(errs, fmt.Errorf("%s.filterAmountMsat must be -1 or greater", name))
	}
	if lc.FilterFeeMsat < -1 {
		errs = append(errs, fmt.Errorf("%s.filterFeeMsat must be -1 or greater", name))
	}
	return append(errs, validateColumns(name, lc.Columns, lc.SortBy, known)...)
}

func validateColumns(name string, columns []string, sortBy string, known []string) []error {
	var errs []error
	if len(columns) == 0 {
		errs = append(errs, fmt.Errorf("%s.columns must not be empty", name))
	}
	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		if !slices.Contains(known, col) {
			errs = append(errs, fmt.Errorf("%s.columns: %q is not a valid column, must be one of %v", name, col, known))
		}
		if seen[col] {
			errs = append(errs, fmt.Errorf("%s.columns: %q listed twice", name, col))
		}
		seen[col] = true
	}
	key := views.ParseSortKey(sortBy)
	if !slices.Contains(known, key.Column) {
		errs = append(errs, fmt.Errorf("%s.sortBy: %q is not a valid column", name, sortBy))
	}
	return errs
}

func validateExcludeStates(states []string) []error {
	var errs []error
	if slices.Contains(states, models.ExcludePublic) && slices.Contains(states, models.ExcludePrivate) {
		errs = append(errs, errors.New("summary.excludeStates: can only exclude PUBLIC or PRIVATE, not both"))
	}
	if slices.Contains(states, models.ExcludeOnline) && slices.Contains(states, models.ExcludeOffline) {
		errs = append(errs, errors.New("summary.excludeStates: can only exclude ONLINE or OFFLINE, not both"))
	}
	for _, s := range states {
		switch s {
		case models.ExcludePublic, models.ExcludePrivate, models.ExcludeOnline, models.ExcludeOffline:
		default:
			if !models.IsShortChannelState(s) {
				errs = append(errs, fmt.Errorf("summary.excludeStates: could not parse channel state %q", s))
			}
		}
	}
	return errs
}
