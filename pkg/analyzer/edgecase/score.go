package edgecase

// Coverage returns a normalized score in [0,1]: the mean, over the
// categories the function actually touches, of the fraction of distinct
// edge cases hit in each. Functions touching no category score 0.
func (p Profile) Coverage() float64 {
	var sum float64
	var n int
	for _, cat := range []Category{CategoryNumeric, CategoryCollection, CategoryString} {
		if !p.Relevant[cat] {
			continue
		}
		sum += float64(p.DistinctCases(cat)) / float64(len(categoryCases[cat]))
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// RelevantCount returns how many input categories the function touches.
func (p Profile) RelevantCount() int {
	n := 0
	for _, v := range p.Relevant {
		if v {
			n++
		}
	}
	return n
}
