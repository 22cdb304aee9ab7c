package pipeline

// Budget counts invocations of one filter stage against a ceiling.
//
// Once Calls reaches Max the stage is exhausted and Spend is a no-op, so Calls never exceeds Max.
type Budget struct {
	calls int
	max   int
}

// NewBudget returns a budget allowing limit invocations. Negative values are treated as 0.
func NewBudget(limit int) *Budget {
	return &Budget{max: max(0, limit)}
}

// Exhausted reports whether the stage has no invocations left.
func (b *Budget) Exhausted() bool {
	return b.calls >= b.max
}

// Spend records one invocation.
func (b *Budget) Spend() {
	if !b.Exhausted() {
		b.calls++
	}
}

func (b *Budget) Calls() int { return b.calls }

func (b *Budget) Max() int { return b.max }
