package fill

import "github.com/crosswordsmith/rebusgen/pkg/grid"

// arc is a directed crossing constraint: the letter at position pos of
// slotID must equal the letter at position otherPos of otherID.
type arc struct {
	slotID, pos       int
	otherID, otherPos int
}

func buildConstraints(slots []*grid.Slot) []arc {
	type ref struct{ slotID, pos int }
	byCoord := make(map[grid.Coord][]ref)
	for _, s := range slots {
		for i, co := range s.Cells {
			byCoord[co] = append(byCoord[co], ref{s.ID, i})
		}
	}
	var arcs []arc
	for _, refs := range byCoord {
		if len(refs) != 2 {
			continue
		}
		a, b := refs[0], refs[1]
		arcs = append(arcs, arc{a.slotID, a.pos, b.slotID, b.pos})
		arcs = append(arcs, arc{b.slotID, b.pos, a.slotID, a.pos})
	}
	return arcs
}

// arcConsistency runs AC-3 over domains, pruning values that have no
// support in a crossing slot's domain. Returns false if any domain is
// wiped out.
func arcConsistency(domains map[int][]candidate, arcs []arc) bool {
	queue := append([]arc(nil), arcs...)
	for len(queue) > 0 {
		a := queue[0]
		queue = queue[1:]
		if revise(domains, a) {
			if len(domains[a.slotID]) == 0 {
				return false
			}
			for _, a2 := range arcs {
				if a2.otherID == a.slotID && a2.slotID != a.otherID {
					queue = append(queue, a2)
				}
			}
		}
	}
	return true
}

func revise(domains map[int][]candidate, a arc) bool {
	supported := make(map[byte]bool)
	for _, c := range domains[a.otherID] {
		supported[c.Word[a.otherPos]] = true
	}
	dom := domains[a.slotID]
	kept := dom[:0:0]
	changed := false
	for _, c := range dom {
		if supported[c.Word[a.pos]] {
			kept = append(kept, c)
		} else {
			changed = true
		}
	}
	if changed {
		domains[a.slotID] = kept
	}
	return changed
}
