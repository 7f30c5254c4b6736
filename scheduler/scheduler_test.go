package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/active-inference/aifcore/agent"
	"github.com/active-inference/aifcore/agentstate"
	"github.com/active-inference/aifcore/belief"
	"github.com/active-inference/aifcore/genmodel"
	"github.com/active-inference/aifcore/inference"
	"github.com/active-inference/aifcore/memory"
	"github.com/active-inference/aifcore/messaging"
	"github.com/active-inference/aifcore/perception"
	"github.com/active-inference/aifcore/planner"
	"github.com/active-inference/aifcore/policy"
	"github.com/active-inference/aifcore/precision"
	"github.com/active-inference/aifcore/tensor"
	"github.com/active-inference/aifcore/world"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func testHandle(t *testing.T) *Handle {
	t.Helper()
	dims := genmodel.Dims{S: 2, O: 2, U: 2, T: 2}
	model := genmodel.NewDiscreteUniform(dims)
	rec := &agent.Record{
		ID:           uuid.New(),
		Status:       agentstate.NewMachine(),
		Capabilities: map[string]bool{"observe": true},
		Discrete:     model,
		Belief:       belief.UniformCategorical(dims.S),
		Episodic:     memory.NewEpisodic(8),
		Precision:    precision.NewController(4, 1, 0.1, 0.9, precision.Bounds{Min: 0.1, Max: 10}),
	}
	layout := perception.NewLayout([]perception.Modality{{Kind: "visual", Dims: 2}})
	actions := perception.NewActionMapper([]world.ActionKind{world.Wait, world.Move})
	return &Handle{
		Record:  rec,
		Layout:  layout,
		Actions: actions,
		Engine:  inference.NewVMP(),
		Planner: planner.NewAStar(),
		Weights: policy.DefaultWeights(),
		Horizon: dims.T,
		Budget:  planner.Budget{MaxNodes: 32, WallTime: 10 * time.Millisecond},
	}
}

func TestStepAdvancesTickAndUpdatesBelief(t *testing.T) {
	w := world.NewFake()
	m := messaging.NewInProcess()
	src := tensor.NewSource(1)
	s := New(w, m, src, zerolog.Nop())

	h := testHandle(t)
	s.Register(h)
	w.SetStimuli(h.Record.ID.String(), []world.Stimulus{{Kind: "visual", Salience: 1, Confidence: 1, Payload: []float64{1, 0}}})

	if err := s.Step(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.Tick() != 1 {
		t.Errorf("Tick() = %d, want 1", s.Tick())
	}
	if h.Record.Tick != 1 {
		t.Errorf("record Tick = %d, want 1", h.Record.Tick)
	}
}

func TestStepSkipsOfflineAgents(t *testing.T) {
	w := world.NewFake()
	m := messaging.NewInProcess()
	src := tensor.NewSource(1)
	s := New(w, m, src, zerolog.Nop())

	h := testHandle(t)
	h.Record.Status.Transition(agentstate.Offline)
	s.Register(h)

	if err := s.Step(context.Background()); err != nil {
		t.Fatal(err)
	}
	if h.Record.Tick != 0 {
		t.Errorf("offline agent's Tick = %d, want 0 (untouched)", h.Record.Tick)
	}
}

func TestStepDeliversMessagesAcrossTickBoundary(t *testing.T) {
	w := world.NewFake()
	m := messaging.NewInProcess()
	src := tensor.NewSource(1)
	s := New(w, m, src, zerolog.Nop())

	h1, h2 := testHandle(t), testHandle(t)
	s.Register(h1)
	s.Register(h2)

	m.Send(context.Background(), messaging.Message{From: h1.Record.ID.String(), To: h2.Record.ID.String(), Kind: messaging.Text})

	msgs, _ := m.Drain(context.Background(), h2.Record.ID.String())
	if len(msgs) != 0 {
		t.Fatalf("Drain before Step() = %d messages, want 0", len(msgs))
	}

	if err := s.Step(context.Background()); err != nil {
		t.Fatal(err)
	}

	msgs, _ = m.Drain(context.Background(), h2.Record.ID.String())
	if len(msgs) != 1 {
		t.Errorf("Drain after Step() = %d messages, want 1", len(msgs))
	}
}

func TestUnregisterRemovesAgentFromOrder(t *testing.T) {
	w := world.NewFake()
	m := messaging.NewInProcess()
	s := New(w, m, tensor.NewSource(1), zerolog.Nop())

	h := testHandle(t)
	s.Register(h)
	if len(s.Handles()) != 1 {
		t.Fatalf("Handles() len = %d, want 1", len(s.Handles()))
	}
	s.Unregister(h.Record.ID)
	if len(s.Handles()) != 0 {
		t.Errorf("Handles() len after Unregister = %d, want 0", len(s.Handles()))
	}
}

func TestParallelStepMatchesSingleThreadedTickAdvance(t *testing.T) {
	w := world.NewFake()
	m := messaging.NewInProcess()
	s := New(w, m, tensor.NewSource(1), zerolog.Nop())
	s.SetWorkers(4)

	for i := 0; i < 3; i++ {
		s.Register(testHandle(t))
	}
	if err := s.Step(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, h := range s.Handles() {
		if h.Record.Tick != 1 {
			t.Errorf("agent %s Tick = %d, want 1", h.Record.ID, h.Record.Tick)
		}
	}
}
