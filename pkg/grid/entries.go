package grid

func playable(t CellType) bool {
	return t == EmptyPlayable || t == Letter
}

// MaximalRun returns the start coordinate and length of the maximal run of
// playable cells sharing (r, c) along direction. Used by the layout
// builder before the grid is frozen, so it treats EmptyPlayable and Letter
// as the same "playable" surface.
func (g *Grid) MaximalRun(r, c int, dir Direction) (Coord, int) {
	dr, dc := 0, 0
	if dir == Across {
		dc = 1
	} else {
		dr = 1
	}
	sr, sc := r, c
	for g.InBounds(sr-dr, sc-dc) && playable(g.cells[sr-dr][sc-dc].Type) {
		sr, sc = sr-dr, sc-dc
	}
	length := 0
	cr, cc := sr, sc
	for g.InBounds(cr, cc) && playable(g.cells[cr][cc].Type) {
		length++
		cr, cc = cr+dr, cc+dc
	}
	return Coord{Row: sr, Col: sc}, length
}

// RegisterSlots scans the frozen grid and emits every slot of length >= 2
// along both directions, assigning stable sequential ids in scan order
// (across pass first, then down). It replaces any previously registered
// slots.
func (g *Grid) RegisterSlots() []*Slot {
	var slots []*Slot
	id := 0

	for r := 0; r < g.H; r++ {
		for c := 0; c < g.W; c++ {
			if !playable(g.cells[r][c].Type) {
				continue
			}
			if c > 0 && playable(g.cells[r][c-1].Type) {
				continue // not a run start
			}
			cells := g.runCells(r, c, Across)
			if len(cells) >= 2 {
				slots = append(slots, &Slot{ID: id, Start: Coord{Row: r, Col: c}, Direction: Across, Length: len(cells), Cells: cells})
				id++
			}
		}
	}

	for c := 0; c < g.W; c++ {
		for r := 0; r < g.H; r++ {
			if !playable(g.cells[r][c].Type) {
				continue
			}
			if r > 0 && playable(g.cells[r-1][c].Type) {
				continue
			}
			cells := g.runCells(r, c, Down)
			if len(cells) >= 2 {
				slots = append(slots, &Slot{ID: id, Start: Coord{Row: r, Col: c}, Direction: Down, Length: len(cells), Cells: cells})
				id++
			}
		}
	}

	g.Slots = slots
	return slots
}

func (g *Grid) runCells(r, c int, dir Direction) []Coord {
	dr, dc := 0, 0
	if dir == Across {
		dc = 1
	} else {
		dr = 1
	}
	var cells []Coord
	for g.InBounds(r, c) && playable(g.cells[r][c].Type) {
		cells = append(cells, Coord{Row: r, Col: c})
		r, c = r+dr, c+dc
	}
	return cells
}

// Pattern returns the slot's current letter constraints as a fixed-length
// string, using '.' for cells that are not yet Letter.
func (g *Grid) Pattern(s *Slot) string {
	buf := make([]byte, s.Length)
	for i, co := range s.Cells {
		cell := g.cells[co.Row][co.Col]
		if cell.Type == Letter {
			buf[i] = byte(cell.Ch)
		} else {
			buf[i] = '.'
		}
	}
	return string(buf)
}
