// Package search implements exact and fuzzy matching over the scraped
// record set.
package search

// Similarity returns the number of matching characters between a and b
// using the classic similar-text algorithm: find the longest common
// substring, then recurse on the left and right remainders, summing the
// matched lengths.
func Similarity(a, b string) int {
	return simCount(a, b)
}

// Percent scores the similarity of a and b in [0, 100]:
// 2 * matched / (len(a) + len(b)) * 100.
func Percent(a, b string) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 0
	}
	return float64(Similarity(a, b)) * 200 / float64(total)
}

func simCount(a, b string) int {
	max, posA, posB := longestCommon(a, b)
	if max == 0 {
		return 0
	}
	sum := max
	sum += simCount(a[:posA], b[:posB])
	sum += simCount(a[posA+max:], b[posB+max:])
	return sum
}

// longestCommon finds the first longest common substring of a and b,
// returning its length and start offsets.
func longestCommon(a, b string) (max, posA, posB int) {
	for i := 0; i < len(a); i++ {
		for j := 0; j < len(b); j++ {
			n := 0
			for i+n < len(a) && j+n < len(b) && a[i+n] == b[j+n] {
				n++
			}
			if n > max {
				max, posA, posB = n, i, j
			}
		}
	}
	return max, posA, posB
}
