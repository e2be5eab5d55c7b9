package telemetry

import "testing"

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_PreyCrash(t *testing.T) {
	bd := NewBookmarkDetector(10)

	// Build up prey population
	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEndTick: int32(i * 15), PreyCount: 100, PredCount: 10})
	}

	// Now crash prey population
	bookmarks := bd.Check(WindowStats{WindowEndTick: 75, PreyCount: 50, PredCount: 10})
	if !hasBookmark(bookmarks, BookmarkPreyCrash) {
		t.Error("expected prey_crash bookmark")
	}

	// The peak resets, so a steady low count does not fire again.
	if hasBookmark(bd.Check(WindowStats{WindowEndTick: 90, PreyCount: 50, PredCount: 10}), BookmarkPreyCrash) {
		t.Error("prey_crash fired twice for one crash")
	}
}

func TestBookmarkDetector_PredatorRecovery(t *testing.T) {
	bd := NewBookmarkDetector(10)

	// Predator population drops to critical level
	for i := 0; i < 3; i++ {
		bd.Check(WindowStats{WindowEndTick: int32(i * 15), PreyCount: 100, PredCount: 2})
	}

	// Predator recovers to 3x the minimum
	bookmarks := bd.Check(WindowStats{WindowEndTick: 60, PreyCount: 100, PredCount: 10})
	if !hasBookmark(bookmarks, BookmarkPredatorRecovery) {
		t.Error("expected predator_recovery bookmark")
	}
}

func TestBookmarkDetector_Extinction(t *testing.T) {
	bd := NewBookmarkDetector(10)

	bd.Check(WindowStats{WindowEndTick: 15, PreyCount: 80, PredCount: 4})

	bookmarks := bd.Check(WindowStats{WindowEndTick: 30, PreyCount: 90, PredCount: 0})
	if !hasBookmark(bookmarks, BookmarkPredatorExtinction) {
		t.Error("expected predator_extinction bookmark")
	}
	if hasBookmark(bookmarks, BookmarkPreyExtinction) {
		t.Error("unexpected prey_extinction bookmark")
	}

	if hasBookmark(bd.Check(WindowStats{WindowEndTick: 45, PreyCount: 95}), BookmarkPredatorExtinction) {
		t.Error("predator_extinction fired again while still extinct")
	}

	// An immigrant revives the species; a second wipe-out is reported.
	bd.Check(WindowStats{WindowEndTick: 60, PreyCount: 95, PredCount: 1})
	if !hasBookmark(bd.Check(WindowStats{WindowEndTick: 75, PreyCount: 95}), BookmarkPredatorExtinction) {
		t.Error("expected predator_extinction after the species returned")
	}
}

func TestBookmarkDetector_StableCoexistence(t *testing.T) {
	bd := NewBookmarkDetector(10)

	fired := -1
	for i := 0; i < 12; i++ {
		bookmarks := bd.Check(WindowStats{WindowEndTick: int32(i * 15), PreyCount: 100, PredCount: 20})
		if hasBookmark(bookmarks, BookmarkStableCoexistence) {
			if fired >= 0 {
				t.Fatalf("stable_coexistence fired at windows %d and %d", fired, i)
			}
			fired = i
		}
	}
	// Four windows of history are needed before stability counting starts,
	// then five stable windows in a row.
	if fired != 8 {
		t.Errorf("stable_coexistence fired at window %d, want 8", fired)
	}
}

func TestBookmarkDetector_UnstableNeverCoexists(t *testing.T) {
	bd := NewBookmarkDetector(10)
	for i := 0; i < 20; i++ {
		prey := 100
		if i%2 == 0 {
			prey = 40
		}
		if hasBookmark(bd.Check(WindowStats{WindowEndTick: int32(i * 15), PreyCount: prey, PredCount: 20}), BookmarkStableCoexistence) {
			t.Fatalf("stable_coexistence fired at window %d for oscillating prey", i)
		}
	}
}
