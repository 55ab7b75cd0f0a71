// Package pagination turns page/limit/order query options into SQL
// offset/limit values and builds the page metadata returned alongside list
// responses.
package pagination

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/keyxmakerx/todoapi/internal/apperror"
)

// Order is the sort direction of a list query.
type Order string

const (
	Asc  Order = "ASC"
	Desc Order = "DESC"
)

// MaxPage caps the page number so (page-1)*limit stays well inside the
// range MariaDB accepts for OFFSET.
const MaxPage = 1_000_000

// Bounds holds the process-wide limits applied to every list query.
type Bounds struct {
	DefaultLimit int
	MaxLimit     int
}

// Options holds validated pagination parameters for a list query.
type Options struct {
	Order   Order
	OrderBy string
	Page    int
	Limit   int
}

// Offset returns the SQL OFFSET value for the current page.
func (o Options) Offset() int {
	if o.Page < 1 {
		return 0
	}
	return (o.Page - 1) * o.Limit
}

// Query is the raw, unvalidated form of Options as it arrives in a URL.
type Query struct {
	Order   string `json:"order" query:"order"`
	OrderBy string `json:"orderBy" query:"orderBy"`
	Page    string `json:"page" query:"page"`
	Limit   string `json:"limit" query:"limit"`
}

// Parse validates q against bounds and the sortable field names, fills in
// defaults for anything omitted, and returns the resulting Options.
// defaultOrderBy must be one of sortable.
func Parse(q Query, bounds Bounds, defaultOrderBy string, sortable []string) (Options, error) {
	q.Order = strings.ToUpper(strings.TrimSpace(q.Order))
	q.OrderBy = strings.TrimSpace(q.OrderBy)
	q.Page = strings.TrimSpace(q.Page)
	q.Limit = strings.TrimSpace(q.Limit)

	fields := make([]interface{}, len(sortable))
	for i, s := range sortable {
		fields[i] = s
	}

	err := validation.ValidateStruct(&q,
		validation.Field(&q.Order, validation.In(string(Asc), string(Desc)).Error("must be ASC or DESC")),
		validation.Field(&q.OrderBy, validation.In(fields...).Error("must be one of "+strings.Join(sortable, ", "))),
		validation.Field(&q.Page, is.Int, validation.By(intRange(1, MaxPage))),
		validation.Field(&q.Limit, is.Int, validation.By(intRange(1, bounds.MaxLimit))),
	)
	if err != nil {
		return Options{}, apperror.FromValidation(err)
	}

	opts := Options{
		Order:   Desc,
		OrderBy: defaultOrderBy,
		Page:    1,
		Limit:   bounds.DefaultLimit,
	}
	if q.Order != "" {
		opts.Order = Order(q.Order)
	}
	if q.OrderBy != "" {
		opts.OrderBy = q.OrderBy
	}
	if q.Page != "" {
		opts.Page, _ = strconv.Atoi(q.Page)
	}
	if q.Limit != "" {
		opts.Limit, _ = strconv.Atoi(q.Limit)
	}
	return opts, nil
}

// intRange returns a rule accepting integer strings in [lo, hi]. Empty
// values are left to other rules. Digit strings too long for an int are
// reported against the bound they overflow.
func intRange(lo, hi int) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		n, err := strconv.Atoi(s)
		switch {
		case errors.Is(err, strconv.ErrRange) && strings.HasPrefix(s, "-"):
			return fmt.Errorf("must be no less than %d", lo)
		case errors.Is(err, strconv.ErrRange):
			return fmt.Errorf("must be no greater than %d", hi)
		case err != nil:
			return errors.New("must be an integer number")
		case n < lo:
			return fmt.Errorf("must be no less than %d", lo)
		case n > hi:
			return fmt.Errorf("must be no greater than %d", hi)
		}
		return nil
	}
}

// Meta describes where a page sits in the full result set.
type Meta struct {
	PageCount   int  `json:"pageCount"`
	CurrentPage int  `json:"currentPage"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
	ItemCount   int  `json:"itemCount"`
	Limit       int  `json:"limit"`
}

// NewMeta computes page metadata for itemCount rows under opts.
func NewMeta(itemCount int, opts Options) Meta {
	pageCount := 0
	if opts.Limit > 0 {
		pageCount = (itemCount + opts.Limit - 1) / opts.Limit
	}
	return Meta{
		PageCount:   pageCount,
		CurrentPage: opts.Page,
		HasNextPage: opts.Page < pageCount,
		HasPrevPage: opts.Page > 1,
		ItemCount:   itemCount,
		Limit:       opts.Limit,
	}
}

// ErrPageNotFound is returned by list services when the requested window
// holds no rows. A page past the end is an error, not an empty page.
func ErrPageNotFound(opts Options) *apperror.AppError {
	return apperror.NewNotFound(fmt.Sprintf("page %d not found", opts.Page))
}
