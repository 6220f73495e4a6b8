package freight

import "math"

// OptionCandidate is the (deadline, price) pair of one delivery option
type OptionCandidate struct {
	Deadline *float64
	Price    *float64
}

// BestOption is the selected (deadline, price) pair; both nil when nothing qualified
type BestOption struct {
	Deadline *float64
	Price    *float64
}

// Found reports whether a candidate was selected
func (b BestOption) Found() bool {
	return b.Deadline != nil && b.Price != nil
}

func (c OptionCandidate) valid() bool {
	if c.Deadline == nil || c.Price == nil {
		return false
	}
	d, p := *c.Deadline, *c.Price
	if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
		return false
	}
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return false
	}
	return true
}

// SelectBestOption picks the option that is both fastest and cheapest when one
// exists. Otherwise it minimizes deadline/minDeadline + price/max(minPrice, 1),
// the first candidate winning ties. Invalid candidates are ignored.
func SelectBestOption(candidates []OptionCandidate) BestOption {
	valid := make([]OptionCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.valid() {
			valid = append(valid, c)
		}
	}
	if len(valid) == 0 {
		return BestOption{}
	}

	minDeadline, minPrice := math.Inf(1), math.Inf(1)
	for _, c := range valid {
		minDeadline = math.Min(minDeadline, *c.Deadline)
		minPrice = math.Min(minPrice, *c.Price)
	}

	for _, c := range valid {
		if *c.Deadline == minDeadline && *c.Price == minPrice {
			return pick(c)
		}
	}

	priceBase := math.Max(minPrice, 1)
	best := valid[0]
	bestScore := math.Inf(1)
	for _, c := range valid {
		score := *c.Deadline/minDeadline + *c.Price/priceBase
		if score < bestScore {
			best, bestScore = c, score
		}
	}
	return pick(best)
}

func pick(c OptionCandidate) BestOption {
	d, p := *c.Deadline, *c.Price
	return BestOption{Deadline: &d, Price: &p}
}
