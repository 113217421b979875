package grid

import "testing"

func TestPlaceClueBoxAdjacency(t *testing.T) {
	g := New(5, 5)
	if err := g.PlaceClueBox(1, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tests := []struct {
		name    string
		r, c    int
		wantErr bool
	}{
		{"right neighbor", 1, 2, true},
		{"below neighbor", 2, 1, true},
		{"diagonal ok", 2, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g2 := New(5, 5)
			_ = g2.PlaceClueBox(1, 1)
			err := g2.PlaceClueBox(tt.r, tt.c)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PlaceClueBox(%d,%d) err=%v, wantErr=%v", tt.r, tt.c, err, tt.wantErr)
			}
		})
	}
}

func TestPlaceLetterIdempotent(t *testing.T) {
	g := New(3, 3)
	if err := g.PlaceLetter(0, 0, 'A'); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.PlaceLetter(0, 0, 'A'); err != nil {
		t.Fatalf("re-placing same letter should be a no-op: %v", err)
	}
	if err := g.PlaceLetter(0, 0, 'B'); err == nil {
		t.Fatalf("expected error placing conflicting letter")
	}
}

func TestSnapshotRollback(t *testing.T) {
	g := New(4, 4)
	_ = g.PlaceLetter(0, 0, 'A')
	token := g.Snapshot()
	_ = g.PlaceLetter(0, 1, 'B')
	if err := g.PlaceClueBox(1, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.At(0, 1).Ch != 'B' {
		t.Fatalf("expected B written before rollback")
	}
	g.Rollback(token)
	if g.At(0, 1).Type != EmptyPlayable {
		t.Fatalf("expected (0,1) restored to empty_playable, got %s", g.At(0, 1).Type)
	}
	if g.At(1, 1).Type != EmptyPlayable {
		t.Fatalf("expected (1,1) restored to empty_playable, got %s", g.At(1, 1).Type)
	}
	if g.At(0, 0).Ch != 'A' {
		t.Fatalf("rollback should not disturb state from before the snapshot")
	}
}

func TestNestedSnapshots(t *testing.T) {
	g := New(3, 3)
	outer := g.Snapshot()
	_ = g.PlaceLetter(0, 0, 'X')
	inner := g.Snapshot()
	_ = g.PlaceLetter(0, 1, 'Y')
	g.Rollback(inner)
	if g.At(0, 1).Type != EmptyPlayable {
		t.Fatalf("inner rollback should undo (0,1)")
	}
	if g.At(0, 0).Ch != 'X' {
		t.Fatalf("inner rollback should not undo (0,0) placed before it")
	}
	g.Rollback(outer)
	if g.At(0, 0).Type != EmptyPlayable {
		t.Fatalf("outer rollback should undo (0,0)")
	}
}

func TestSetBlockerTopLeftPlantsAnchors(t *testing.T) {
	g := New(10, 10)
	if err := g.SetBlocker(Rect{R: 0, C: 0, H: 3, W: 4}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.At(3, 0).Type != ClueBox {
		t.Fatalf("expected (3,0) planted as clue box, got %s", g.At(3, 0).Type)
	}
	if g.At(0, 4).Type != ClueBox {
		t.Fatalf("expected (0,4) planted as clue box, got %s", g.At(0, 4).Type)
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			if g.At(r, c).Type != BlockerZone {
				t.Fatalf("(%d,%d) should be blocker_zone, got %s", r, c, g.At(r, c).Type)
			}
		}
	}
}

func TestSetBlockerOutOfBounds(t *testing.T) {
	g := New(5, 5)
	if err := g.SetBlocker(Rect{R: 0, C: 0, H: 6, W: 2}); err == nil {
		t.Fatalf("expected out-of-bounds error")
	}
}
