package scoring

// Step is one rung of a classification ladder.
type Step struct {
	Min   int
	Label string
}

// Ladder maps a percentile to a label. Steps are ordered by descending Min;
// the last step is the floor.
type Ladder []Step

func (l Ladder) Classify(p int) string {
	for _, s := range l {
		if p >= s.Min {
			return s.Label
		}
	}
	if len(l) == 0 {
		return ""
	}
	return l[len(l)-1].Label
}

// AttentionLadder labels aggregate attention percentiles.
var AttentionLadder = Ladder{
	{95, "Superior"},
	{85, "Above average"},
	{75, "Medium-high"},
	{50, "Average"},
	{25, "Medium-low"},
	{15, "Below average"},
	{0, "Inferior"},
}

// MemoreLadder labels MEMORE percentiles.
var MemoreLadder = Ladder{
	{95, "Superior"},
	{80, "Above median"},
	{30, "Median"},
	{10, "Below median"},
	{0, "Inferior"},
}
