package registry

import "sort"

// Fund is a funding source referenced by allocations.
type Fund struct {
	FundCode    string `json:"fund_code" yaml:"fund_code"`
	FundName    string `json:"fund_name" yaml:"fund_name"`
	FundGroup   string `json:"fund_group" yaml:"fund_group"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Funds is a concurrent safe collection of funds keyed by fund code.
type Funds struct {
	store[string, Fund]
}

// NewFunds creates an empty collection.
func NewFunds() *Funds {
	return &Funds{store: newStore[string, Fund]()}
}

// Get returns a fund by code.
func (f *Funds) Get(code string) (*Fund, bool) {
	return f.get(code)
}

// Exists checks if a fund code is registered.
func (f *Funds) Exists(code string) bool {
	_, ok := f.get(code)
	return ok
}

// Len returns the number of funds.
func (f *Funds) Len() int {
	return f.len()
}

// List returns copies of all funds sorted by code.
func (f *Funds) List() []Fund {
	items := f.snapshot()
	out := make([]Fund, 0, len(items))
	for _, fund := range items {
		out = append(out, *fund)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].FundCode < out[j].FundCode
	})
	return out
}
