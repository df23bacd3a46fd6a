package decision

import "context"

// Auto approves every gate and accepts every description, but never picks
// among ambiguous candidates.
type Auto struct{}

// NewAuto creates an Auto decider.
func NewAuto() Auto { return Auto{} }

// Confirm implements Decider.
func (Auto) Confirm(context.Context, string) (bool, error) { return true, nil }

// Select implements Decider. Ambiguous matches are always skipped.
func (Auto) Select(context.Context, string, []string) (int, error) { return Skip, nil }

// Description implements Decider.
func (Auto) Description(context.Context, string, string, string) (DescriptionChoice, error) {
	return DescriptionChoice{Action: Accept}, nil
}
