// Package scheduler owns the agent registry and drives the per-tick
// update loop: snapshot the world, update every agent's belief and
// choose its next action, apply those actions, deliver messages, and
// advance the tick counter, per spec.md §4.9 and §5. The drive loop is
// grounded on experiment/Online.go's Run/RunEpisode structure,
// generalized from one agent stepping one environment to N agents
// stepping one shared world snapshot per tick.
package scheduler

import (
	"context"
	"sort"
	"time"

	"github.com/active-inference/aifcore/agent"
	"github.com/active-inference/aifcore/agentstate"
	"github.com/active-inference/aifcore/aierrors"
	"github.com/active-inference/aifcore/belief"
	"github.com/active-inference/aifcore/genmodel"
	"github.com/active-inference/aifcore/inference"
	"github.com/active-inference/aifcore/memory"
	"github.com/active-inference/aifcore/messaging"
	"github.com/active-inference/aifcore/perception"
	"github.com/active-inference/aifcore/planner"
	"github.com/active-inference/aifcore/policy"
	"github.com/active-inference/aifcore/tensor"
	"github.com/active-inference/aifcore/world"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Handle bundles a Record with the per-agent collaborators the
// scheduler needs to update it: how raw stimuli map onto an
// observation vector, how a chosen action index maps onto a
// world.Action, the inference engine driving belief updates, and the
// planner producing candidate policies.
type Handle struct {
	Record          *agent.Record
	Layout          perception.Layout
	Actions         *perception.ActionMapper
	Engine          inference.Engine
	Planner         planner.Planner
	Weights         policy.Weights
	Horizon         int
	Budget          planner.Budget
	EnergyPerAction float64

	// MinEnergy is E_min: an action whose kind isn't wait is
	// substituted with wait when the agent's energy falls below this,
	// per spec.md §4.10's action-selection gating.
	MinEnergy float64
	// ConfidenceThreshold is tau_conf: the chosen policy is substituted
	// with observe when its posterior confidence falls below this.
	ConfidenceThreshold float64
	// TauPrune is the posterior-pruning threshold passed to
	// policy.Posterior when computing that confidence, per spec.md
	// §4.4 "Pruning".
	TauPrune float64

	// ConsolidateEvery is K_c: episodic memory is swept into long-term
	// memory every this many ticks, per spec.md §4.7. Zero disables
	// consolidation.
	ConsolidateEvery int64
	// ConsolidateImportance is the importance threshold passed to
	// memory.Consolidate.
	ConsolidateImportance float64

	// OnlineLearning enables the per-tick Dirichlet count update of
	// spec.md §4.10 step 8; off by default since not every archetype
	// should adapt its generative model online.
	OnlineLearning bool
}

// Scheduler runs the tick loop over a registry of agent Handles.
type Scheduler struct {
	world     world.World
	messaging messaging.Messaging
	src       *tensor.Source
	logger    zerolog.Logger

	numWorkers  int
	agentBudget time.Duration

	order    []uuid.UUID
	registry map[uuid.UUID]*Handle

	tick int64
}

// New returns a Scheduler driving w/m, with randomness seeded from
// src, logging through logger.
func New(w world.World, m messaging.Messaging, src *tensor.Source, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		world:       w,
		messaging:   m,
		src:         src,
		logger:      logger,
		numWorkers:  1,
		agentBudget: 50 * time.Millisecond,
		registry:    map[uuid.UUID]*Handle{},
	}
}

// SetWorkers switches the scheduler to a worker-pool parallel update
// mode when n > 1, per spec.md §5.
func (s *Scheduler) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	s.numWorkers = n
}

// SetAgentBudget bounds the wall time spent updating a single agent
// per tick.
func (s *Scheduler) SetAgentBudget(d time.Duration) {
	s.agentBudget = d
}

// Register adds h to the registry, appending its agent's ID to the
// stable update order.
func (s *Scheduler) Register(h *Handle) {
	id := h.Record.ID
	if _, exists := s.registry[id]; !exists {
		s.order = append(s.order, id)
	}
	s.registry[id] = h
	if reg, ok := s.messaging.(interface{ Register(string) }); ok {
		reg.Register(id.String())
	}
}

// Unregister removes an agent from the registry.
func (s *Scheduler) Unregister(id uuid.UUID) {
	delete(s.registry, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Tick returns the current tick counter.
func (s *Scheduler) Tick() int64 { return s.tick }

// Handles returns the registered handles in stable update order.
func (s *Scheduler) Handles() []*Handle {
	out := make([]*Handle, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.registry[id])
	}
	return out
}

// Step runs one tick: snapshot the world, update every agent
// (single-threaded or worker-pool, per SetWorkers), apply the chosen
// actions, deliver queued messages, and advance the tick counter. The
// agents update in registry order so a single-threaded run is fully
// deterministic; parallel mode still applies each agent's action in
// that same order once every update finishes, for determinism of
// world-visible effects.
func (s *Scheduler) Step(ctx context.Context) error {
	if _, err := s.world.Snapshot(ctx); err != nil {
		return aierrors.New(aierrors.ExternalFailure, "scheduler.Scheduler.Step", err)
	}

	handles := s.Handles()
	if s.numWorkers <= 1 {
		for _, h := range handles {
			s.updateOne(ctx, h)
		}
	} else {
		s.updateParallel(ctx, handles)
	}

	for _, h := range handles {
		s.applyOne(ctx, h)
	}

	if flusher, ok := s.messaging.(interface{ Flush() }); ok {
		flusher.Flush()
	}

	s.tick++
	return nil
}

func (s *Scheduler) updateParallel(ctx context.Context, handles []*Handle) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.numWorkers)
	for _, h := range handles {
		h := h
		g.Go(func() error {
			s.updateOne(gctx, h)
			return nil
		})
	}
	_ = g.Wait()
}

// updateOne perceives, infers a new belief, updates precision, and
// plans a next action for a single agent, all within its wall-time
// budget. Cooperative suspension: an offline or error-state agent is
// skipped entirely, the cooperative point spec.md §4.9 calls for.
func (s *Scheduler) updateOne(ctx context.Context, h *Handle) {
	rec := h.Record
	status := rec.Status.Status()
	if status == agentstate.Offline || status == agentstate.Error {
		return
	}

	actx, cancel := context.WithTimeout(ctx, s.agentBudget)
	defer cancel()

	stimuli, err := s.world.StimuliFor(actx, rec.ID.String(), rec.Position, capabilityList(rec.Capabilities))
	if err != nil {
		rec.Status.Transition(agentstate.Error)
		s.logger.Error().Err(err).Str("agent", rec.ID.String()).Msg("stimuli_for failed")
		return
	}

	obs := perception.MapToObservation(stimuli, h.Layout)
	rec.LastObservation = obs

	if rec.Discrete != nil {
		obsIdx := argmax(obs, rec.Discrete.Dims.O)
		prior := mustCategorical(rec.Belief)
		prevAction := rec.LastAction
		next, diag := h.Engine.Infer(rec.Discrete, obsIdx, prior, inference.Context{Action: prevAction, HasPrev: true, Previous: prior})
		predictionError := 1.0
		if !diag.Degenerate && next.P.Len() > 0 {
			predictionError = 1 - next.P.AtVec(obsIdx%next.P.Len())
		}
		beta := rec.Precision.Update(predictionError, next.Entropy())
		rec.Belief = next

		if h.OnlineLearning && prior != nil {
			s.learnOne(rec, prior, next, obsIdx, prevAction)
		}

		if err := ensureIdle(rec.Status); err != nil {
			rec.Status.Transition(agentstate.Error)
			s.logger.Error().Err(err).Str("agent", rec.ID.String()).Msg("could not normalize status before planning")
			return
		}
		rec.Status.Transition(agentstate.Planning)
		params := planner.Params{Model: rec.Discrete, Weights: h.Weights, C: rec.Discrete.C, Horizon: h.Horizon, Src: s.src, Beta: beta}
		pi, _, err := h.Planner.Plan(actx, next, params, h.Budget)
		if err != nil {
			rec.Status.Transition(agentstate.Error)
			s.logger.Error().Err(err).Str("agent", rec.ID.String()).Msg("plan failed")
			return
		}
		action := planner.WaitAction
		if len(pi) > 0 {
			action = pi[0]
		}
		action = s.gateAction(h, rec, next, params, action)
		rec.LastAction = action

		rec.Episodic.Add(memory.Episode{
			Tick:       int(rec.Tick),
			State:      obs,
			Obs:        obsIdx,
			Action:     action,
			Importance: next.Entropy(),
		})

		if h.ConsolidateEvery > 0 && rec.Tick > 0 && rec.Tick%h.ConsolidateEvery == 0 {
			promoted := memory.Consolidate(rec.Episodic, rec.LongTerm, h.ConsolidateImportance)
			if promoted > 0 {
				s.logger.Debug().Str("agent", rec.ID.String()).Int("promoted", promoted).Msg("consolidated episodic memory")
			}
		}
	}

	rec.Tick++
}

// gateAction applies spec.md §4.10's action-selection gating: an
// action that costs energy the agent no longer has is substituted
// with wait, and a policy the agent isn't confident in is substituted
// with observe. Confidence is the posterior mass policy.Posterior
// assigns, under the controller's current precision, to the action
// actually chosen, evaluated one step ahead from b.
func (s *Scheduler) gateAction(h *Handle, rec *agent.Record, b *belief.Categorical, params planner.Params, action int) int {
	kind := h.Actions.ToAction(action, rec.Position, "").Kind
	if kind != world.Wait && !rec.Resources.HasEnergy(h.MinEnergy) {
		return planner.WaitAction
	}

	confidence := oneStepConfidence(rec.Discrete, b, params, h.TauPrune, action)
	if confidence < h.ConfidenceThreshold {
		if idx, ok := h.Actions.ToIndex(world.Action{Kind: world.Observe}); ok {
			return idx
		}
	}
	return action
}

// oneStepConfidence scores every immediate next action from b by EFE,
// runs them through policy.Posterior at the controller's current
// precision, and returns the posterior mass landing on chosen, per
// spec.md §4.4's q(pi) ∝ exp(-beta*G(pi)) and §4.10 step 4's "score
// weighted by current precision".
func oneStepConfidence(model *genmodel.Discrete, b *belief.Categorical, params planner.Params, tauPrune float64, chosen int) float64 {
	cands := make([]policy.Candidate, 0, len(model.B))
	for u := 0; u < len(model.B); u++ {
		score := policy.EFE(model, b, policy.Policy{u}, params.C, params.Weights)
		cands = append(cands, policy.Candidate{Policy: policy.Policy{u}, Score: score})
	}
	kept, q := policy.Posterior(cands, params.Beta, params.Weights.Habit, tauPrune)
	for i, c := range kept {
		if len(c.Policy) > 0 && c.Policy[0] == chosen {
			return q[i]
		}
	}
	return 0
}

// learnOne runs one online Dirichlet-count update step against the
// transition this tick just observed, per spec.md §4.10 step 8. Shadow-
// copy-validate-commit failures (genmodel.UpdateParams rejects the
// update rather than leaving A/B non-stochastic) are logged and
// otherwise ignored; the agent keeps its prior tensors.
func (s *Scheduler) learnOne(rec *agent.Record, prior, next *belief.Categorical, obsIdx, action int) {
	fromState := argmax(prior.P.RawVector().Data, -1)
	toState := argmax(next.P.RawVector().Data, -1)
	delta := genmodel.Delta{
		Obs:   &obsIdx,
		State: &toState,
	}
	if action >= 0 && action < len(rec.Discrete.B) {
		delta.Action, delta.From, delta.To = &action, &fromState, &toState
	}
	if err := rec.Discrete.UpdateParams(delta); err != nil {
		s.logger.Warn().Err(err).Str("agent", rec.ID.String()).Msg("online parameter update rejected")
	}
}

// applyOne maps the agent's chosen action index to a world.Action,
// applies it, and folds the outcome back into the agent's resources
// and position.
func (s *Scheduler) applyOne(ctx context.Context, h *Handle) {
	rec := h.Record
	status := rec.Status.Status()
	if status == agentstate.Offline || status == agentstate.Error {
		return
	}

	a := h.Actions.ToAction(rec.LastAction, rec.Position, "")
	outcome, err := s.world.ApplyAction(ctx, rec.ID.String(), a)
	if err != nil {
		rec.Status.Transition(agentstate.Error)
		s.logger.Error().Err(err).Str("agent", rec.ID.String()).Msg("apply_action failed")
		return
	}

	if outcome.NewPosition != nil {
		rec.Position = *outcome.NewPosition
		rec.Status.Transition(agentstate.Moving)
	} else {
		rec.Status.Transition(agentstate.Idle)
	}
	for k, delta := range outcome.DeltaResources {
		switch k {
		case "energy":
			rec.Resources.Energy += delta
		case "health":
			rec.Resources.Health += delta
		}
	}
	if h.EnergyPerAction > 0 {
		rec.Resources.Energy -= h.EnergyPerAction
	}
}

func capabilityList(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k, ok := range m {
		if ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func argmax(v []float64, limit int) int {
	best, bestVal := 0, -1.0
	for i, x := range v {
		if limit > 0 && i >= limit {
			break
		}
		if x > bestVal {
			best, bestVal = i, x
		}
	}
	return best
}

func mustCategorical(b belief.Belief) *belief.Categorical {
	if c, ok := b.(*belief.Categorical); ok {
		return c
	}
	return nil
}

// ensureIdle walks the status machine back to Idle along the one path
// every transient state has to it (Interacting -> Moving -> Idle,
// Moving -> Idle, Planning -> Idle), so the scheduler can always
// request a fresh Planning transition at the start of an agent's
// update regardless of which transient state it left off in.
func ensureIdle(m *agentstate.Machine) error {
	for m.Status() != agentstate.Idle {
		switch m.Status() {
		case agentstate.Interacting:
			if err := m.Transition(agentstate.Moving); err != nil {
				return err
			}
		case agentstate.Moving, agentstate.Planning:
			if err := m.Transition(agentstate.Idle); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}
