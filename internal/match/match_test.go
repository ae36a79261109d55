package match

import (
	"context"
	"math"
	"testing"

	"biaslens/internal/catalog"
	"biaslens/internal/model"
)

func fixture() *catalog.Catalog {
	return catalog.New([]catalog.Record{
		{OriginalName: "CNN", Bias: model.Left, Confidence: 0.9},
		{OriginalName: "The New York Times", Bias: model.LeftCenter, Confidence: 0.85},
		{OriginalName: "Fox News", Bias: model.Right, Confidence: 0.8},
		{OriginalName: "Reuters", Bias: model.Center, Confidence: 0.95},
		{OriginalName: "Washington Post", Bias: model.LeftCenter, Confidence: 0.8},
		{OriginalName: "Breitbart", Bias: model.Right, Confidence: 0.9},
	})
}

func TestResolveExact(t *testing.T) {
	m := NewMatcher(fixture())
	got := m.Resolve("new york times.com")
	if !got.Found || got.Tier != "exact" || got.Bias != model.LeftCenter || got.Confidence != 0.85 {
		t.Fatalf("unexpected match %+v", got)
	}
}

func TestResolveExactBeatsSubstring(t *testing.T) {
	c := catalog.New([]catalog.Record{
		{OriginalName: "Fox", Bias: model.Center, Confidence: 0.4},
		{OriginalName: "Fox News", Bias: model.Right, Confidence: 0.9},
		{OriginalName: "Fox Business", Bias: model.RightCenter, Confidence: 0.95},
	})
	got := NewMatcher(c).Resolve("FOX")
	if got.Tier != "exact" || got.Bias != model.Center || got.Confidence != 0.4 {
		t.Fatalf("exact entry should win, got %+v", got)
	}
}

func TestResolveSubstringTieBreak(t *testing.T) {
	cases := []struct {
		name    string
		records []catalog.Record
		want    string
	}{
		{
			name: "highest confidence",
			records: []catalog.Record{
				{OriginalName: "Washington Post", Bias: model.LeftCenter, Confidence: 0.7},
				{OriginalName: "Washington Times", Bias: model.RightCenter, Confidence: 0.9},
			},
			want: "Washington Times",
		},
		{
			name: "shortest key",
			records: []catalog.Record{
				{OriginalName: "Washington Examiner", Bias: model.Right, Confidence: 0.8},
				{OriginalName: "Washington Post", Bias: model.LeftCenter, Confidence: 0.8},
			},
			want: "Washington Post",
		},
		{
			name: "lexicographic",
			records: []catalog.Record{
				{OriginalName: "Washington Post", Bias: model.LeftCenter, Confidence: 0.8},
				{OriginalName: "Washington Blog", Bias: model.Center, Confidence: 0.8},
			},
			want: "Washington Blog",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMatcher(catalog.New(tc.records))
			for i := 0; i < 5; i++ {
				got := m.Resolve("Washington")
				if got.Tier != "substring" || got.Matched != tc.want {
					t.Fatalf("got %+v, want %s", got, tc.want)
				}
			}
		})
	}
}

func TestResolveKeyInsideName(t *testing.T) {
	got := NewMatcher(fixture()).Resolve("CNN International")
	if got.Tier != "substring" || got.Bias != model.Left {
		t.Fatalf("expected substring hit on CNN, got %+v", got)
	}
}

func TestResolveFuzzy(t *testing.T) {
	got := NewMatcher(fixture()).Resolve("Reuterz")
	if got.Tier != "fuzzy" || got.Matched != "Reuters" || got.Bias != model.Center {
		t.Fatalf("expected fuzzy hit on Reuters, got %+v", got)
	}
}

func TestResolveFuzzyFloor(t *testing.T) {
	m := NewMatcher(fixture())
	for _, name := range []string{"Bloomberg", "CNBC", "xyzw"} {
		if got := m.Resolve(name); got.Found {
			t.Fatalf("%s should not resolve, got %+v", name, got)
		}
	}
}

func TestResolveShortAndEmpty(t *testing.T) {
	m := NewMatcher(fixture())
	for _, name := range []string{"", "   ", "abc", "The"} {
		if got := m.Resolve(name); got.Found {
			t.Fatalf("%q should not resolve, got %+v", name, got)
		}
	}
}

func TestResolveEmptyCatalog(t *testing.T) {
	if got := NewMatcher(catalog.Empty).Resolve("CNN"); got.Found {
		t.Fatalf("empty catalog should resolve nothing")
	}
}

func TestFindClosest(t *testing.T) {
	m := NewMatcher(fixture())
	got := m.FindClosest("NY Times", 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}
	if got[0].OriginalName != "The New York Times" {
		t.Fatalf("best candidate: %+v", got[0])
	}
	// foxnews and reuters tie on similarity; reuters has higher confidence
	if got[1].OriginalName != "Reuters" || got[2].OriginalName != "Fox News" {
		t.Fatalf("tie order: %+v", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Similarity > got[i-1].Similarity {
			t.Fatalf("similarities increase at %d: %+v", i, got)
		}
	}
}

func TestFindClosestBounds(t *testing.T) {
	m := NewMatcher(fixture())
	if got := m.FindClosest("Reuters", 100); len(got) != fixture().Len() {
		t.Fatalf("expected catalog size, got %d", len(got))
	}
	if got := m.FindClosest("ab", 3); len(got) != 0 {
		t.Fatalf("short name should give no candidates")
	}
	if got := m.FindClosest("Reuters", 0); len(got) != 0 {
		t.Fatalf("n=0 should give no candidates")
	}
	if got := m.FindClosest("Reuters", 1); len(got) != 1 || got[0].Similarity != 1 {
		t.Fatalf("identical key should score 1: %+v", got)
	}
}

func TestSimilarityProperties(t *testing.T) {
	pairs := [][2]string{{"reuters", "reuterz"}, {"abcd", "dcba"}, {"foxnews", "newsfox"}, {"", "cnn"}, {"nytimes", "newyorktimes"}}
	for _, p := range pairs {
		a, b := Similarity(p[0], p[1]), Similarity(p[1], p[0])
		if a != b {
			t.Fatalf("asymmetric for %v: %v vs %v", p, a, b)
		}
		if a < 0 || a >= 1 {
			t.Fatalf("out of range for %v: %v", p, a)
		}
	}
	if Similarity("cnn", "cnn") != 1 || Similarity("", "") != 1 {
		t.Fatalf("identical strings should score 1")
	}
	if got := Similarity("reuters", "reuterz"); math.Abs(got-12.0/14.0) > 1e-9 {
		t.Fatalf("ratio = %v", got)
	}
}

type countingResolver struct{ calls int }

func (c *countingResolver) Resolve(name string) SourceMatch {
	c.calls++
	return SourceMatch{Found: true, Bias: model.Center, Confidence: 1}
}

func TestMemo(t *testing.T) {
	r := &countingResolver{}
	m := NewMemo(r)
	for i := 0; i < 3; i++ {
		m.Resolve("CNN")
	}
	m.Resolve("Fox")
	if r.calls != 2 {
		t.Fatalf("expected 2 underlying calls, got %d", r.calls)
	}
}

type swapSource struct{ rows catalog.Rows }

func (s *swapSource) LoadBiasRows(ctx context.Context) ([]catalog.Row, error) { return s.rows, nil }

func TestMatcherFollowsStoreRefresh(t *testing.T) {
	src := &swapSource{rows: catalog.Rows{{Source: "CNN", Bias: "left", Confidence: "0.9"}}}
	s := catalog.NewStore(src)
	m := NewMatcher(s)
	if got := m.Resolve("Fox News"); got.Found {
		t.Fatalf("Fox News unknown before refresh, got %+v", got)
	}
	src.rows = append(src.rows, catalog.Row{Source: "Fox News", Bias: "right", Confidence: "0.8"})
	s.Load(context.Background(), true)
	if got := m.Resolve("fox news.com"); !got.Found || got.Bias != model.Right {
		t.Fatalf("expected Fox News after refresh, got %+v", got)
	}
}
