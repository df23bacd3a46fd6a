// Package workforce aggregates delimited payroll tables into per-entity,
// per-year headcount, wages and salary distributions.
package workforce

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/civicledger/budgetmap/pkg/constants"
	"github.com/civicledger/budgetmap/pkg/errors"
	"github.com/civicledger/budgetmap/pkg/logging"
	"github.com/civicledger/budgetmap/pkg/registry"
)

// Columns names the header of each field used from a payroll table.
type Columns struct {
	Year       string   `mapstructure:"year" yaml:"year"`
	EntityName string   `mapstructure:"entity_name" yaml:"entity_name"`
	EntityCode string   `mapstructure:"entity_code" yaml:"entity_code"`
	BasePay    string   `mapstructure:"base_pay" yaml:"base_pay"`
	Pay        []string `mapstructure:"pay" yaml:"pay"`
	Benefits   []string `mapstructure:"benefits" yaml:"benefits"`
}

// DefaultColumns matches the state controller's government compensation
// export.
func DefaultColumns() Columns {
	return Columns{
		Year:       "Year",
		EntityName: "DepartmentOrSubdivision",
		EntityCode: "EntityCode",
		BasePay:    "RegularPay",
		Pay:        []string{"OvertimePay", "LumpSumPay", "OtherPay"},
		Benefits:   []string{"DefinedBenefitPlanContribution", "DeferredCompensationPlan", "HealthDentalVision"},
	}
}

// Options configures Read.
type Options struct {
	Delimiter rune
	Columns   Columns
}

// DefaultOptions returns comma-delimited options with the default columns.
func DefaultOptions() Options {
	return Options{Delimiter: constants.DefaultWorkforceDelimiter, Columns: DefaultColumns()}
}

// Record is one parsed payroll row.
type Record struct {
	Year         string
	EntityName   string
	EntityCode   string
	Wages        decimal.Decimal
	Compensation decimal.Decimal
}

// Entity is the aggregated payroll of one employer.
type Entity struct {
	Name  string
	Code  string
	Years []registry.Workforce
	// Compensation is wages plus benefits, per year.
	Compensation map[string]decimal.Decimal
}

// Result is the outcome of reading one payroll table.
type Result struct {
	Entities   []Entity
	Rows       int
	Malformed  int
	OutOfRange int
}

var yearPattern = regexp.MustCompile(`^\d{4}$`)

// header maps column names to their index, ignoring case and surrounding
// space.
type header map[string]int

func newHeader(row []string) header {
	h := make(header, len(row))
	for i, name := range row {
		name = strings.TrimPrefix(name, "\ufeff")
		h[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return h
}

func (h header) index(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	i, ok := h[strings.ToLower(strings.TrimSpace(name))]
	return i, ok
}

func (h header) value(row []string, name string) (string, bool) {
	i, ok := h.index(name)
	if !ok || i >= len(row) {
		return "", false
	}
	return strings.TrimSpace(row[i]), true
}

// ParseMoney parses payroll amounts such as "$1,234.56". Empty cells are
// zero.
func ParseMoney(s string) (decimal.Decimal, error) {
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
	if s == "" || s == "-" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// Read parses and aggregates a payroll table. Malformed rows are skipped and
// counted; a header lacking the year, entity name or base pay column is a
// structure error.
func Read(ctx context.Context, r io.Reader, name string, opts Options) (*Result, error) {
	logger := logging.FromContext(ctx)
	if opts.Delimiter == 0 {
		opts.Delimiter = constants.DefaultWorkforceDelimiter
	}
	reader := csv.NewReader(r)
	reader.Comma = opts.Delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	first, err := reader.Read()
	if err == io.EOF {
		return &Result{}, nil
	}
	if err != nil {
		return nil, errors.WrapParse("csv", name, err)
	}
	h := newHeader(first)
	cols := opts.Columns
	for _, required := range []string{cols.Year, cols.EntityName, cols.BasePay} {
		if _, ok := h.index(required); !ok {
			return nil, errors.NewStructureError(name, "header", fmt.Sprintf("missing column %q", required))
		}
	}

	agg := newAggregator()
	res := &Result{}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				res.Malformed++
				continue
			}
			return nil, errors.WrapIO("read", name, err)
		}
		res.Rows++
		rec, err := parseRow(h, row, cols)
		if err != nil {
			res.Malformed++
			logger.Debug().Err(err).Int("row", res.Rows+1).Msg("Skipping malformed payroll row")
			continue
		}
		if !agg.add(rec) {
			res.OutOfRange++
			logger.Warn().
				Str("entity", rec.EntityName).
				Str("year", rec.Year).
				Str("wages", rec.Wages.String()).
				Msg("Wages outside salary buckets, using nearest bucket")
		}
	}
	res.Entities = agg.entities()
	return res, nil
}

func parseRow(h header, row []string, cols Columns) (Record, error) {
	year, _ := h.value(row, cols.Year)
	if !yearPattern.MatchString(year) {
		return Record{}, fmt.Errorf("invalid year %q", year)
	}
	entity, _ := h.value(row, cols.EntityName)
	if entity == "" {
		return Record{}, fmt.Errorf("missing entity name")
	}
	code, _ := h.value(row, cols.EntityCode)

	sum := func(names ...string) (decimal.Decimal, error) {
		total := decimal.Zero
		for _, n := range names {
			cell, ok := h.value(row, n)
			if !ok {
				continue
			}
			v, err := ParseMoney(cell)
			if err != nil {
				return decimal.Zero, fmt.Errorf("column %s: %w", n, err)
			}
			total = total.Add(v)
		}
		return total, nil
	}

	wages, err := sum(append([]string{cols.BasePay}, cols.Pay...)...)
	if err != nil {
		return Record{}, err
	}
	benefits, err := sum(cols.Benefits...)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Year:         year,
		EntityName:   entity,
		EntityCode:   code,
		Wages:        wages,
		Compensation: wages.Add(benefits),
	}, nil
}

type yearTotals struct {
	head         int
	wages        decimal.Decimal
	compensation decimal.Decimal
	buckets      []int
}

type entityTotals struct {
	name  string
	code  string
	years map[string]*yearTotals
}

type aggregator struct {
	byKey map[string]*entityTotals
}

func newAggregator() *aggregator {
	return &aggregator{byKey: make(map[string]*entityTotals)}
}

// add folds rec into its entity and reports whether its wages fell inside
// the salary buckets.
func (a *aggregator) add(rec Record) bool {
	key := strings.ToLower(rec.EntityName)
	e, ok := a.byKey[key]
	if !ok {
		e = &entityTotals{name: rec.EntityName, years: make(map[string]*yearTotals)}
		a.byKey[key] = e
	}
	if e.code == "" {
		e.code = rec.EntityCode
	}
	y, ok := e.years[rec.Year]
	if !ok {
		y = &yearTotals{buckets: make([]int, len(registry.SalaryRanges))}
		e.years[rec.Year] = y
	}
	y.head++
	y.wages = y.wages.Add(rec.Wages)
	y.compensation = y.compensation.Add(rec.Compensation)
	idx, inRange := registry.SalaryBucket(rec.Wages)
	y.buckets[idx]++
	return inRange
}

func (a *aggregator) entities() []Entity {
	out := make([]Entity, 0, len(a.byKey))
	for _, e := range a.byKey {
		ent := Entity{Name: e.name, Code: e.code, Compensation: make(map[string]decimal.Decimal, len(e.years))}
		for year, y := range e.years {
			w := registry.Workforce{Year: year, HeadCount: y.head, Wages: y.wages, Compensation: y.compensation}
			for i, n := range y.buckets {
				if n > 0 {
					w.Salary = append(w.Salary, registry.Bucket{Range: registry.SalaryRanges[i].Label, Count: n})
				}
			}
			ent.Years = append(ent.Years, w)
			ent.Compensation[year] = y.compensation
		}
		sort.Slice(ent.Years, func(i, j int) bool { return ent.Years[i].Year < ent.Years[j].Year })
		out = append(out, ent)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
