package engine

// Plateau is the rectangular grid rovers move on. Immutable after construction.
type Plateau struct {
	width  int
	height int
}

// NewPlateau creates a plateau from its top-right corner. The first value is
// the Y coordinate of the top edge and the second the X coordinate of the
// right edge; both are inclusive, so a 0,0 plateau is a single cell.
func NewPlateau(topY, rightX int) (*Plateau, error) {
	if topY < 0 || rightX < 0 {
		return nil, newError(InvalidBounds, "plateau top and right coordinates must not be negative, got %d %d", topY, rightX)
	}
	return &Plateau{
		width:  rightX + 1,
		height: topY + 1,
	}, nil
}

// Width returns the number of cells along the X axis
func (p *Plateau) Width() int {
	return p.width
}

// Height returns the number of cells along the Y axis
func (p *Plateau) Height() int {
	return p.height
}

// Contains reports whether x,y lies on the plateau
func (p *Plateau) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < p.width && y < p.height
}
