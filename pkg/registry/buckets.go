package registry

import (
	"slices"

	"github.com/shopspring/decimal"
)

// DistributionKind names one of the per-year distributions of a department.
type DistributionKind string

// Distribution kinds.
const (
	SalaryKind DistributionKind = "salary"
	TenureKind DistributionKind = "tenure"
	AgeKind    DistributionKind = "age"
)

// SalaryRange is a closed salary interval and its bucket label.
type SalaryRange struct {
	Label string
	Min   decimal.Decimal
	Max   decimal.Decimal
}

func salary(label string, lo, hi int64) SalaryRange {
	return SalaryRange{Label: label, Min: decimal.NewFromInt(lo), Max: decimal.NewFromInt(hi)}
}

// SalaryRanges are the enumerated salary buckets in ascending order.
var SalaryRanges = []SalaryRange{
	salary("0-29999", 0, 29999),
	salary("30000-49999", 30000, 49999),
	salary("50000-69999", 50000, 69999),
	salary("70000-89999", 70000, 89999),
	salary("90000-109999", 90000, 109999),
	salary("110000-149999", 110000, 149999),
	salary("150000-199999", 150000, 199999),
	salary("200000-499999", 200000, 499999),
}

// TenureRanges are the enumerated years-of-service buckets.
var TenureRanges = []string{"0-1", "2-5", "6-10", "11-15", "16-20", "21-25", "26-30", "31+"}

// AgeRanges are the enumerated age buckets.
var AgeRanges = []string{"18-24", "25-34", "35-44", "45-54", "55-64", "65+"}

// BucketLabels returns the enumerated labels of a distribution kind.
func BucketLabels(kind DistributionKind) []string {
	switch kind {
	case SalaryKind:
		labels := make([]string, len(SalaryRanges))
		for i, r := range SalaryRanges {
			labels[i] = r.Label
		}
		return labels
	case TenureKind:
		return slices.Clone(TenureRanges)
	case AgeKind:
		return slices.Clone(AgeRanges)
	}
	return nil
}

// SalaryBucket returns the index of the bucket holding amount. Amounts below
// or above every bucket land in the nearest extreme bucket and inRange is
// false. Cents between two whole-dollar bounds stay in the lower bucket.
func SalaryBucket(amount decimal.Decimal) (idx int, inRange bool) {
	if amount.LessThan(SalaryRanges[0].Min) {
		return 0, false
	}
	last := len(SalaryRanges) - 1
	if amount.GreaterThanOrEqual(SalaryRanges[last].Max.Add(decimal.NewFromInt(1))) {
		return last, false
	}
	for i := last; i >= 0; i-- {
		if amount.GreaterThanOrEqual(SalaryRanges[i].Min) {
			return i, true
		}
	}
	return 0, true
}
