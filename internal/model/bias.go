package model

import (
	"fmt"
	"math"
	"strings"
)

// BiasLabel is the ordinal political lean of an outlet or a user.
type BiasLabel int8

const (
	Left        BiasLabel = -2
	LeftCenter  BiasLabel = -1
	Center      BiasLabel = 0
	RightCenter BiasLabel = 1
	Right       BiasLabel = 2
)

// Labels lists every label in ascending order, left to right.
var Labels = []BiasLabel{Left, LeftCenter, Center, RightCenter, Right}

// Value is the label's position on the -2..2 axis.
func (b BiasLabel) Value() float64 { return float64(b) }

func (b BiasLabel) Valid() bool { return b >= Left && b <= Right }

func (b BiasLabel) String() string {
	switch b {
	case Left:
		return "left"
	case LeftCenter:
		return "left-center"
	case Center:
		return "center"
	case RightCenter:
		return "right-center"
	case Right:
		return "right"
	}
	return fmt.Sprintf("BiasLabel(%d)", int8(b))
}

// ParseBiasLabel reads the names produced by String. Separators between the
// two words of the center-leaning labels may be '-', '_' or a space, and
// "lean left"/"lean right" are accepted as aliases.
func ParseBiasLabel(s string) (BiasLabel, error) {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.NewReplacer("_", "-", " ", "-").Replace(k)
	switch k {
	case "left":
		return Left, nil
	case "left-center", "center-left", "lean-left":
		return LeftCenter, nil
	case "center", "centre":
		return Center, nil
	case "right-center", "center-right", "lean-right":
		return RightCenter, nil
	case "right":
		return Right, nil
	}
	return Center, fmt.Errorf("unknown bias label %q", s)
}

// NearestLabel returns the label closest to stance. An exact midpoint goes
// to the label further left.
func NearestLabel(stance float64) BiasLabel {
	best := Labels[0]
	bestDist := math.Abs(best.Value() - stance)
	for _, l := range Labels[1:] {
		if d := math.Abs(l.Value() - stance); d < bestDist {
			best, bestDist = l, d
		}
	}
	return best
}

func (b BiasLabel) MarshalText() ([]byte, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("invalid bias label %d", int8(b))
	}
	return []byte(b.String()), nil
}

func (b *BiasLabel) UnmarshalText(p []byte) error {
	v, err := ParseBiasLabel(string(p))
	if err != nil {
		return err
	}
	*b = v
	return nil
}
