package match

import (
	"github.com/pmezard/go-difflib/difflib"
)

// Similarity is the Ratcliff/Obershelp ratio 2*M/T of a and b, taken over
// runes and maximized over both argument orders so the result is symmetric.
// It is 1.0 only for identical strings.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	x, y := runes(a), runes(b)
	r1 := difflib.NewMatcherWithJunk(x, y, false, nil).Ratio()
	r2 := difflib.NewMatcherWithJunk(y, x, false, nil).Ratio()
	if r2 > r1 {
		return r2
	}
	return r1
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
