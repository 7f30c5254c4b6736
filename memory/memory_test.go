package memory

import "testing"

func TestWorkingEvictsLeastRecentlyUsed(t *testing.T) {
	w := NewWorking(2)
	w.Put("a", 1)
	w.Put("b", 2)
	w.Get("a") // touch a, making b the LRU entry
	w.Put("c", 3)

	if _, ok := w.Get("b"); ok {
		t.Error("expected b to have been evicted as least-recently-used")
	}
	if _, ok := w.Get("a"); !ok {
		t.Error("expected a to still be present")
	}
	if _, ok := w.Get("c"); !ok {
		t.Error("expected c to be present")
	}
}

func TestWorkingLenBoundedByCapacity(t *testing.T) {
	w := NewWorking(3)
	for i := 0; i < 10; i++ {
		w.Put(string(rune('a'+i)), i)
	}
	if w.Len() != 3 {
		t.Errorf("Len() = %d, want 3", w.Len())
	}
}

func TestEpisodicEvictsLowestImportance(t *testing.T) {
	e := NewEpisodic(3)
	e.Add(Episode{Tick: 1, Importance: 0.9})
	e.Add(Episode{Tick: 2, Importance: 0.1})
	e.Add(Episode{Tick: 3, Importance: 0.5})
	e.Add(Episode{Tick: 4, Importance: 0.8}) // should evict tick 2 (lowest importance)

	ticks := map[int]bool{}
	for _, ep := range e.All() {
		ticks[ep.Tick] = true
	}
	if ticks[2] {
		t.Error("expected the lowest-importance record (tick 2) to be evicted")
	}
	if !ticks[1] || !ticks[3] || !ticks[4] {
		t.Errorf("unexpected surviving records: %v", ticks)
	}
}

func TestEpisodicEvictionTiesBreakToOldest(t *testing.T) {
	e := NewEpisodic(2)
	e.Add(Episode{Tick: 1, Importance: 0.5})
	e.Add(Episode{Tick: 2, Importance: 0.5})
	e.Add(Episode{Tick: 3, Importance: 0.5}) // tie: evict the oldest (tick 1)

	ticks := map[int]bool{}
	for _, ep := range e.All() {
		ticks[ep.Tick] = true
	}
	if ticks[1] {
		t.Error("expected the oldest record to be evicted on an importance tie")
	}
}

func TestEpisodicRecentReturnsNewestFirst(t *testing.T) {
	e := NewEpisodic(5)
	for i := 1; i <= 3; i++ {
		e.Add(Episode{Tick: i, Importance: 0.5})
	}
	recent := e.Recent(2)
	if len(recent) != 2 || recent[0].Tick != 3 || recent[1].Tick != 2 {
		t.Errorf("Recent(2) = %v, want ticks [3 2]", recent)
	}
}

func TestEpisodicSimilarRanksByCosine(t *testing.T) {
	e := NewEpisodic(5)
	e.Add(Episode{Tick: 1, State: []float64{1, 0, 0}})
	e.Add(Episode{Tick: 2, State: []float64{0, 1, 0}})
	e.Add(Episode{Tick: 3, State: []float64{0.9, 0.1, 0}})

	similar := e.Similar([]float64{1, 0, 0}, 1)
	if len(similar) != 1 || similar[0].Tick != 1 {
		t.Errorf("Similar returned %v, want the record with Tick=1 first", similar)
	}
}

func TestConsolidatePromotesAboveThreshold(t *testing.T) {
	e := NewEpisodic(5)
	e.Add(Episode{Tick: 1, Importance: 0.9})
	e.Add(Episode{Tick: 2, Importance: 0.1})
	lt := NewLongTerm(10)

	n := Consolidate(e, lt, 0.5)
	if n != 1 {
		t.Errorf("Consolidate promoted %d records, want 1", n)
	}
	if len(lt.All()) != 1 {
		t.Errorf("LongTerm holds %d records, want 1", len(lt.All()))
	}
}

func TestConsolidateStopsAtLongTermCapacity(t *testing.T) {
	e := NewEpisodic(5)
	e.Add(Episode{Tick: 1, Importance: 0.9})
	e.Add(Episode{Tick: 2, Importance: 0.8})
	lt := NewLongTerm(1)

	n := Consolidate(e, lt, 0.5)
	if n != 1 {
		t.Errorf("Consolidate promoted %d records, want 1 (capped by LongTerm capacity)", n)
	}
}
