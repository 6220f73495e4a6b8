package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	appfreight "github.com/movmais/backend/internal/application/freight"
	"github.com/movmais/backend/internal/domain/integration"
)

// Job command names; they double as binary names and run lock prefixes
const (
	CommandFreightOrders        = "freight-orders"
	CommandFreightBestOption    = "freight-best-option"
	CommandBackfillDatetime     = "backfill-datetime"
	CommandBackfillQuoteOptions = "backfill-quote-options"
)

// ErrUsage marks a flag or validation problem
var ErrUsage = errors.New("invalid arguments")

// OrdersOptions are the flags of freight-orders
type OrdersOptions struct {
	CompanyID int64  `flag:"company" validate:"gte=1"`
	Platform  string `flag:"platform" validate:"required"`
	Start     time.Time
	End       time.Time
	Limit     int `flag:"limit" validate:"gte=1,lte=500"`
}

// BatchOptions are the flags shared by the keyset batch jobs. A run covers one
// company, or every company when AllCompanies is set; CompanyID is then 0.
type BatchOptions struct {
	CompanyID    int64 `flag:"company" validate:"gte=0"`
	AllCompanies bool
	From         *time.Time
	To        *time.Time
	BatchSize int `flag:"batch-size" validate:"gte=1,lte=10000"`
}

// Request converts the flags to a batch request
func (o BatchOptions) Request() appfreight.BatchRequest {
	return appfreight.BatchRequest{
		CompanyID: o.CompanyID,
		From:      o.From,
		To:        o.To,
		BatchSize: o.BatchSize,
	}
}

// DateBackfillOptions are the flags of backfill-datetime
type DateBackfillOptions struct {
	BatchOptions
	Entity string `flag:"entity" validate:"oneof=quotes orders"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("flag")
		if name == "" {
			return fld.Name
		}
		return "--" + name
	})
	return v
}

// ---------------------------------------------------------------------------
// Parsers
// ---------------------------------------------------------------------------

// ParseOrdersOptions parses freight-orders flags. Dates without an offset are
// read in loc; a date-only end covers the whole day.
func ParseOrdersOptions(args []string, loc *time.Location, defaultLimit int) (*OrdersOptions, error) {
	fs := newFlagSet(CommandFreightOrders)
	company := fs.Int64("company", 0, "company id (required)")
	platform := fs.String("platform", string(integration.PlatformFreightHub), "platform slug")
	start := fs.String("start-date", "", "window start, YYYY-MM-DD[ HH:MM[:SS]] (required)")
	end := fs.String("end-date", "", "window end, YYYY-MM-DD[ HH:MM[:SS]] (required)")
	limit := fs.Int("limit", defaultLimit, "page size, 1..500")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}

	opts := &OrdersOptions{
		CompanyID: *company,
		Platform:  strings.TrimSpace(*platform),
		Limit:     *limit,
	}
	if err := check(opts); err != nil {
		return nil, err
	}
	if _, err := integration.ParsePlatformSlug(opts.Platform); err != nil {
		return nil, fmt.Errorf("%w: --platform: %v", ErrUsage, err)
	}

	if *start == "" || *end == "" {
		return nil, fmt.Errorf("%w: --start-date and --end-date are required", ErrUsage)
	}
	var err error
	if opts.Start, err = ParseDate(*start, loc, false); err != nil {
		return nil, fmt.Errorf("%w: --start-date: %v", ErrUsage, err)
	}
	if opts.End, err = ParseDate(*end, loc, true); err != nil {
		return nil, fmt.Errorf("%w: --end-date: %v", ErrUsage, err)
	}
	if opts.End.Before(opts.Start) {
		return nil, fmt.Errorf("%w: --start-date must not be after --end-date", ErrUsage)
	}
	return opts, nil
}

// ParseBatchOptions parses the flags of freight-best-option and backfill-quote-options
func ParseBatchOptions(command string, args []string, loc *time.Location) (*BatchOptions, error) {
	fs := newFlagSet(command)
	opts, bind := bindBatchFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if err := bind(loc); err != nil {
		return nil, err
	}
	return opts, nil
}

// ParseDateBackfillOptions parses backfill-datetime flags
func ParseDateBackfillOptions(args []string, loc *time.Location) (*DateBackfillOptions, error) {
	fs := newFlagSet(CommandBackfillDatetime)
	batch, bind := bindBatchFlags(fs)
	entity := fs.String("entity", "", "quotes or orders (required)")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if err := bind(loc); err != nil {
		return nil, err
	}

	opts := &DateBackfillOptions{BatchOptions: *batch, Entity: strings.TrimSpace(*entity)}
	if err := check(opts); err != nil {
		return nil, err
	}
	return opts, nil
}

// bindBatchFlags registers the shared batch flags; the returned func finishes
// parsing once fs.Parse has run.
func bindBatchFlags(fs *flag.FlagSet) (*BatchOptions, func(loc *time.Location) error) {
	opts := &BatchOptions{}
	company := fs.Int64("company", 0, "company id (required unless --all-companies)")
	allCompanies := fs.Bool("all-companies", false, "run for every company")
	batchSize := fs.Int("batch-size", appfreight.DefaultBatchSize, "rows per batch, 1..10000")
	start := fs.String("start-date", "", "optional window start")
	end := fs.String("end-date", "", "optional window end")

	return opts, func(loc *time.Location) error {
		opts.CompanyID = *company
		opts.AllCompanies = *allCompanies
		opts.BatchSize = *batchSize
		if err := check(opts); err != nil {
			return err
		}
		switch {
		case opts.AllCompanies && opts.CompanyID != 0:
			return fmt.Errorf("%w: --company and --all-companies are mutually exclusive", ErrUsage)
		case !opts.AllCompanies && opts.CompanyID == 0:
			return fmt.Errorf("%w: --company is required, or pass --all-companies to cover every company", ErrUsage)
		}
		if *start != "" {
			t, err := ParseDate(*start, loc, false)
			if err != nil {
				return fmt.Errorf("%w: --start-date: %v", ErrUsage, err)
			}
			opts.From = &t
		}
		if *end != "" {
			t, err := ParseDate(*end, loc, true)
			if err != nil {
				return fmt.Errorf("%w: --end-date: %v", ErrUsage, err)
			}
			opts.To = &t
		}
		if opts.From != nil && opts.To != nil && opts.To.Before(*opts.From) {
			return fmt.Errorf("%w: --start-date must not be after --end-date", ErrUsage)
		}
		return nil
	}
}

func newFlagSet(command string) *flag.FlagSet {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// check runs struct validation and turns the first failures into a usage error
func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, e.Field()+" "+validationMessage(e))
	}
	return fmt.Errorf("%w: %s", ErrUsage, strings.Join(msgs, "; "))
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	default:
		return "is invalid"
	}
}

// ---------------------------------------------------------------------------
// Dates
// ---------------------------------------------------------------------------

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

// ParseDate reads YYYY-MM-DD with an optional time, or RFC 3339. A date-only
// value is the start of that day, or its last second when endOfDay is set.
func ParseDate(s string, loc *time.Location, endOfDay bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		if endOfDay {
			return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, loc), nil
		}
		return t, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not YYYY-MM-DD with an optional time", s)
}
