// Package memory implements the three memory tiers an agent record
// owns: a bounded LRU working memory, an importance-evicted episodic
// ring buffer, and an append-only long-term store, plus the
// consolidation pass that promotes episodic records into long-term
// memory. The episodic ring buffer's capacity/overwrite bookkeeping is
// adapted from GoLearn's fifoRemove1Cache, generalized from strict
// FIFO eviction to importance-weighted eviction (ties broken by age).
package memory

import (
	"container/list"

	"gonum.org/v1/gonum/floats"
)

// Working is a bounded ordered map with LRU eviction at capacity,
// per spec.md §4.7 (default capacity 16).
type Working struct {
	capacity int
	order    *list.List
	items    map[string]*list.Element
}

type workingEntry struct {
	key   string
	value interface{}
}

// NewWorking returns an empty Working memory of the given capacity.
func NewWorking(capacity int) *Working {
	return &Working{capacity: capacity, order: list.New(), items: make(map[string]*list.Element)}
}

// Put inserts or updates key, marking it most-recently-used, and
// evicts the least-recently-used entry if capacity is exceeded.
func (w *Working) Put(key string, value interface{}) {
	if el, ok := w.items[key]; ok {
		el.Value.(*workingEntry).value = value
		w.order.MoveToFront(el)
		return
	}
	el := w.order.PushFront(&workingEntry{key: key, value: value})
	w.items[key] = el
	if w.order.Len() > w.capacity {
		oldest := w.order.Back()
		if oldest != nil {
			w.order.Remove(oldest)
			delete(w.items, oldest.Value.(*workingEntry).key)
		}
	}
}

// Get returns key's value and marks it most-recently-used.
func (w *Working) Get(key string) (interface{}, bool) {
	el, ok := w.items[key]
	if !ok {
		return nil, false
	}
	w.order.MoveToFront(el)
	return el.Value.(*workingEntry).value, true
}

// Len returns the number of entries currently held.
func (w *Working) Len() int {
	return w.order.Len()
}

// Episode is one episodic memory record, per spec.md §4.7.
type Episode struct {
	Tick       int
	State      []float64
	Obs        int
	Action     int
	Outcome    string
	Reward     float64
	Importance float64
}

// Episodic is a fixed-capacity ring buffer of Episode records. On
// overflow, the lowest-importance record is evicted, ties broken
// toward the oldest record, per spec.md §4.7.
type Episodic struct {
	records  []Episode
	present  []bool
	capacity int
	nextSlot int
	ticks    []int // insertion order counter per slot, for the oldest tie-break
	clock    int
}

// NewEpisodic returns an empty Episodic buffer of the given capacity.
func NewEpisodic(capacity int) *Episodic {
	return &Episodic{
		records:  make([]Episode, capacity),
		present:  make([]bool, capacity),
		ticks:    make([]int, capacity),
		capacity: capacity,
	}
}

// Add inserts ep, evicting the lowest-importance (then oldest) record
// if the buffer is full.
func (e *Episodic) Add(ep Episode) {
	e.clock++
	if e.Len() < e.capacity {
		slot := e.firstEmptySlot()
		e.records[slot] = ep
		e.present[slot] = true
		e.ticks[slot] = e.clock
		return
	}
	victim := e.evictionVictim()
	e.records[victim] = ep
	e.ticks[victim] = e.clock
}

func (e *Episodic) firstEmptySlot() int {
	for i, p := range e.present {
		if !p {
			return i
		}
	}
	return 0
}

func (e *Episodic) evictionVictim() int {
	victim := 0
	for i := 1; i < e.capacity; i++ {
		if e.records[i].Importance < e.records[victim].Importance {
			victim = i
		} else if e.records[i].Importance == e.records[victim].Importance && e.ticks[i] < e.ticks[victim] {
			victim = i
		}
	}
	return victim
}

// Len returns the number of records currently held.
func (e *Episodic) Len() int {
	n := 0
	for _, p := range e.present {
		if p {
			n++
		}
	}
	return n
}

// All returns every currently held record, oldest first.
func (e *Episodic) All() []Episode {
	type indexed struct {
		ep   Episode
		tick int
	}
	var out []indexed
	for i, p := range e.present {
		if p {
			out = append(out, indexed{ep: e.records[i], tick: e.ticks[i]})
		}
	}
	// Insertion order, oldest first.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].tick < out[j-1].tick; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	result := make([]Episode, len(out))
	for i, x := range out {
		result[i] = x.ep
	}
	return result
}

// Recent returns the n most recently added records, newest first.
func (e *Episodic) Recent(n int) []Episode {
	all := e.All()
	if n > len(all) {
		n = len(all)
	}
	out := make([]Episode, n)
	for i := 0; i < n; i++ {
		out[i] = all[len(all)-1-i]
	}
	return out
}

// ByImportance returns every record with importance >= threshold.
func (e *Episodic) ByImportance(threshold float64) []Episode {
	var out []Episode
	for _, ep := range e.All() {
		if ep.Importance >= threshold {
			out = append(out, ep)
		}
	}
	return out
}

// Similar returns the k records whose State is most cosine-similar to
// query, per spec.md §4.7.
func (e *Episodic) Similar(query []float64, k int) []Episode {
	all := e.All()
	type scored struct {
		ep    Episode
		score float64
	}
	scoredList := make([]scored, 0, len(all))
	for _, ep := range all {
		if len(ep.State) != len(query) {
			continue
		}
		scoredList = append(scoredList, scored{ep: ep, score: cosine(query, ep.State)})
	}
	for i := 1; i < len(scoredList); i++ {
		for j := i; j > 0 && scoredList[j].score > scoredList[j-1].score; j-- {
			scoredList[j], scoredList[j-1] = scoredList[j-1], scoredList[j]
		}
	}
	if k > len(scoredList) {
		k = len(scoredList)
	}
	out := make([]Episode, k)
	for i := 0; i < k; i++ {
		out[i] = scoredList[i].ep
	}
	return out
}

func cosine(a, b []float64) float64 {
	dot := floats.Dot(a, b)
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (na * nb)
}

// LongTerm is an append-only memory store capped at Capacity; once
// full, further promotions are dropped rather than overwriting, per
// spec.md §4.7.
type LongTerm struct {
	records  []Episode
	capacity int
}

// NewLongTerm returns an empty LongTerm store of the given capacity.
func NewLongTerm(capacity int) *LongTerm {
	return &LongTerm{capacity: capacity}
}

// Append adds ep if capacity allows, returning false if the store is
// full.
func (lt *LongTerm) Append(ep Episode) bool {
	if len(lt.records) >= lt.capacity {
		return false
	}
	lt.records = append(lt.records, ep)
	return true
}

// All returns every record held.
func (lt *LongTerm) All() []Episode {
	return lt.records
}

// Consolidate copies every episodic record at or above
// importanceThreshold into long-term memory, per spec.md §4.7's
// consolidation pass (run by the caller every K_c ticks). Returns the
// number of records actually promoted (fewer than matched, if
// long-term memory fills up mid-pass).
func Consolidate(episodic *Episodic, longTerm *LongTerm, importanceThreshold float64) int {
	promoted := 0
	for _, ep := range episodic.ByImportance(importanceThreshold) {
		if !longTerm.Append(ep) {
			break
		}
		promoted++
	}
	return promoted
}
