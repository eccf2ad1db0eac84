package pipeline

// Candidate is one version of the article body produced by a stage
type Candidate struct {
	Label     string
	Text      string
	Truncated bool
	Words     int
}

// Offer is a candidate paired with the share of the previous accepted version's
// words it must retain
type Offer struct {
	Candidate
	Tolerance float64
}

// Selection is the outcome of best-version selection
type Selection struct {
	Best     Candidate
	Accepted []string // Labels in acceptance order, starting with the base
	Rejected []string
}

// Accepts reports whether next may replace prev
func Accepts(prev, next Candidate, tolerance float64) bool {
	if next.Truncated {
		return false
	}
	return float64(next.Words) >= tolerance*float64(prev.Words)
}

// SelectBest reduces base and the offers in order, keeping the last accepted candidate
func SelectBest(base Candidate, offers ...Offer) Selection {
	chain := NewChain(base)
	for _, o := range offers {
		chain.Offer(o.Candidate, o.Tolerance)
	}
	return chain.Selection()
}

// Chain is the incremental form of SelectBest, used when each stage's input is
// the best version so far
type Chain struct {
	sel Selection
}

// NewChain starts a chain from the validated draft
func NewChain(base Candidate) *Chain {
	return &Chain{sel: Selection{Best: base, Accepted: []string{base.Label}}}
}

// Offer submits a candidate and reports whether it became the best version
func (c *Chain) Offer(next Candidate, tolerance float64) bool {
	if !Accepts(c.sel.Best, next, tolerance) {
		c.sel.Rejected = append(c.sel.Rejected, next.Label)
		return false
	}
	c.sel.Best = next
	c.sel.Accepted = append(c.sel.Accepted, next.Label)
	return true
}

// Best returns the current accepted candidate
func (c *Chain) Best() Candidate {
	return c.sel.Best
}

// Selection returns the chain outcome so far
func (c *Chain) Selection() Selection {
	return c.sel
}
