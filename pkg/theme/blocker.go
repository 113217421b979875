// Package theme implements the blocker placer and the theme-word placer:
// the first mutation pass applied to a blank grid before the layout
// builder freezes cell types.
package theme

import (
	"errors"
	"math/rand"

	"github.com/crosswordsmith/rebusgen/pkg/grid"
)

// ErrBlockerOutOfBounds is returned when the grid is too small to host
// any legal blocker rectangle.
var ErrBlockerOutOfBounds = errors.New("theme: grid too small for a legal blocker rectangle")

// BlockerRequest configures the optional blocker rectangle. Zero H/W
// means "pick a size randomly"; a nil R/C means "pick a position
// randomly"; Enabled=false means no blocker at all.
type BlockerRequest struct {
	Enabled bool
	H, W    int
	R, C    *int
}

var positions = []string{"top-left", "top-right", "bottom-left", "bottom-right", "center"}

func maxBlockerDim(dim int) int {
	m := dim / 2
	if m > 6 {
		m = 6
	}
	return m
}

func randDim(dim int, rng *rand.Rand) (int, error) {
	max := maxBlockerDim(dim)
	if max < 3 {
		return 0, ErrBlockerOutOfBounds
	}
	return 3 + rng.Intn(max-3+1), nil
}

func positionFor(name string, h, w, rectH, rectW int) (r, c int) {
	switch name {
	case "top-left":
		return 0, 0
	case "top-right":
		return 0, w - rectW
	case "bottom-left":
		return h - rectH, 0
	case "bottom-right":
		return h - rectH, w - rectW
	default: // center
		return (h - rectH) / 2, (w - rectW) / 2
	}
}

// PlaceBlocker applies req to g, mutating it in place, and returns the
// resulting rectangle (the zero Rect if req is disabled).
func PlaceBlocker(g *grid.Grid, req BlockerRequest, rng *rand.Rand) (grid.Rect, error) {
	if !req.Enabled {
		return grid.Rect{}, nil
	}

	h, w := req.H, req.W
	var err error
	if h == 0 {
		if h, err = randDim(g.H, rng); err != nil {
			return grid.Rect{}, err
		}
	}
	if w == 0 {
		if w, err = randDim(g.W, rng); err != nil {
			return grid.Rect{}, err
		}
	}

	var r, c int
	if req.R != nil && req.C != nil {
		r, c = *req.R, *req.C
	} else {
		name := positions[rng.Intn(len(positions))]
		r, c = positionFor(name, g.H, g.W, h, w)
	}

	rect := grid.Rect{R: r, C: c, H: h, W: w}
	if err := g.SetBlocker(rect); err != nil {
		return grid.Rect{}, err
	}
	return rect, nil
}
