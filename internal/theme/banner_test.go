package theme

import (
	"strings"
	"testing"

	"biaslens/internal/model"
)

func TestBannerShowsAxis(t *testing.T) {
	if !strings.Contains(Banner(), "BIASLENS") {
		t.Fatalf("banner missing title")
	}
	parts := strings.Split(Axis(), " · ")
	if len(parts) != len(model.Labels) {
		t.Fatalf("expected %d labels, got %q", len(model.Labels), parts)
	}
	for i, l := range model.Labels {
		if !strings.Contains(parts[i], l.String()) {
			t.Fatalf("position %d: %q does not show %s", i, parts[i], l)
		}
	}
	if strings.Contains(parts[0], "center") || strings.Contains(parts[4], "center") {
		t.Fatalf("axis ends should be the extremes: %q", parts)
	}
}
