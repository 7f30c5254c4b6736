// Package perception maps raw world stimuli into the fixed-length
// observation vectors the generative model consumes, and maps chosen
// policy actions back into world.Action values, per spec.md §4.10
// steps 1-2 and §6.
package perception

import "github.com/active-inference/aifcore/world"

// Modality describes one named slice of the observation vector: its
// position in iteration order and its width in slots.
type Modality struct {
	Kind string
	Dims int
}

// Layout fixes the total shape of the observation vector by assigning
// each modality kind a contiguous, zero-filled-by-default slice, per
// spec.md §4.10 step 2 ("O_total = Σ modality_dims").
type Layout struct {
	Modalities []Modality
	offsets    map[string]int
	total      int
}

// NewLayout builds a Layout from an ordered list of modalities. The
// offset of each modality is fixed by its position in the list.
func NewLayout(modalities []Modality) Layout {
	offsets := make(map[string]int, len(modalities))
	total := 0
	for _, m := range modalities {
		offsets[m.Kind] = total
		total += m.Dims
	}
	return Layout{Modalities: modalities, offsets: offsets, total: total}
}

// Total returns O_total, the full observation vector length.
func (l Layout) Total() int {
	return l.total
}

// Offset returns the starting slot for a modality kind, and whether
// the layout defines that kind at all.
func (l Layout) Offset(kind string) (int, bool) {
	off, ok := l.offsets[kind]
	return off, ok
}

// Dims returns the slot width of a modality kind, or 0 if undefined.
func (l Layout) Dims(kind string) int {
	for _, m := range l.Modalities {
		if m.Kind == kind {
			return m.Dims
		}
	}
	return 0
}

// MapToObservation folds a list of stimuli into a single observation
// vector of length layout.Total(), per spec.md §4.10 step 2. Each
// stimulus's payload is written into its modality's slice, scaled by
// salience*confidence; slots belonging to modalities with no stimulus
// this tick are left zero-filled. A stimulus whose kind the layout
// does not define, or whose payload is wider than the modality's
// slots, is dropped (truncated, in the latter case) rather than
// panicking — the world interface is an external collaborator and its
// failures must not abort the tick.
func MapToObservation(stimuli []world.Stimulus, layout Layout) []float64 {
	out := make([]float64, layout.Total())
	for _, s := range stimuli {
		offset, ok := layout.Offset(s.Kind)
		if !ok {
			continue
		}
		width := layout.Dims(s.Kind)
		weight := s.Salience * s.Confidence
		n := len(s.Payload)
		if n > width {
			n = width
		}
		for i := 0; i < n; i++ {
			out[offset+i] += weight * s.Payload[i]
		}
	}
	return out
}
