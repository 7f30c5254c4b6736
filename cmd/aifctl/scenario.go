// Package main implements aifctl, the minimal CLI surface named in
// spec.md §6: run/step/inspect/save/load over a population of agents
// driven by scheduler.Scheduler. No GoLearn file plays this role
// directly (main.go is scratch code exercising network/gob, not a
// cobra CLI); the command layout and exit-code contract come straight
// from spec.md §6, wired with cobra the way the rest of the retrieved
// pack's CLI-shaped repos do (see DESIGN.md).
package main

import (
	"encoding/json"
	"fmt"
	"os"
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
	"github.com/active-inference/aifcore/precision"
	"github.com/active-inference/aifcore/scheduler"
	"github.com/active-inference/aifcore/tensor"
	"github.com/active-inference/aifcore/world"
	"github.com/rs/zerolog"
)

// AgentSpec names one agent to create for a run, per spec.md §6
// "create(spec) -> id". Type selects the registered agent.Type
// archetype; Dims/Alpha0/NoveltyBonus/TradeBonus/TradeObsIdx feed the
// matching Config (agent.ExplorerConfig or agent.MerchantConfig).
type AgentSpec struct {
	Type         agent.Type  `json:"type"`
	Dims         genmodel.Dims `json:"dims"`
	Alpha0       float64     `json:"alpha0"`
	NoveltyBonus float64     `json:"novelty_bonus"`
	TradeBonus   float64     `json:"trade_bonus"`
	TradeObsIdx  int         `json:"trade_obs_idx"`

	// Modalities lists the observation layout every agent shares this
	// run; Actions lists the world.ActionKind each B-tensor action
	// index maps to, in order.
	Modalities []perception.Modality `json:"modalities"`
	Actions    []world.ActionKind    `json:"actions"`

	Planner string `json:"planner"` // "mcts", "beam", "astar", "trajectory"; default "astar"

	// OnlineLearning enables spec.md §4.10 step 8's per-tick Dirichlet
	// count update against this agent's own generative model.
	OnlineLearning bool `json:"online_learning"`
}

// ScenarioConfig is the run --config document: everything needed to
// build a Scheduler and its agent population deterministically from
// a seed, per spec.md §8 "Determinism".
type ScenarioConfig struct {
	Seed       uint64      `json:"seed"`
	NumWorkers int         `json:"num_workers"`
	TickMS     int         `json:"tick_ms"`
	Ticks      int         `json:"ticks"`
	Agents     []AgentSpec `json:"agents"`
}

// LoadScenario reads and validates a ScenarioConfig from path.
func LoadScenario(path string) (ScenarioConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ScenarioConfig{}, aierrors.New(aierrors.ParseError, "main.LoadScenario", err)
	}
	var cfg ScenarioConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return ScenarioConfig{}, aierrors.New(aierrors.ParseError, "main.LoadScenario", err)
	}
	if len(cfg.Agents) == 0 {
		return ScenarioConfig{}, aierrors.New(aierrors.ParseError, "main.LoadScenario",
			fmt.Errorf("scenario must name at least one agent"))
	}
	for i, a := range cfg.Agents {
		if a.Type != agent.Explorer && a.Type != agent.Merchant {
			return ScenarioConfig{}, aierrors.New(aierrors.ParseError, "main.LoadScenario",
				fmt.Errorf("agents[%d]: unknown archetype %q", i, a.Type))
		}
	}
	return cfg, nil
}

func (a AgentSpec) toConfig() agent.Config {
	switch a.Type {
	case agent.Merchant:
		return &agent.MerchantConfig{
			Dims:        a.Dims,
			TradeBonus:  a.TradeBonus,
			TradeObsIdx: a.TradeObsIdx,
		}
	default:
		return &agent.ExplorerConfig{
			Dims:         a.Dims,
			Alpha0:       nonZeroF(a.Alpha0, 1.0),
			NoveltyBonus: a.NoveltyBonus,
		}
	}
}

func nonZeroF(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}

func (a AgentSpec) planner() planner.Planner {
	switch a.Planner {
	case "mcts":
		return planner.NewMCTS()
	case "beam":
		return planner.NewBeam(8)
	case "trajectory":
		return planner.NewTrajectorySampling(32)
	default:
		return planner.NewAStar()
	}
}

func (a AgentSpec) layout() perception.Layout {
	if len(a.Modalities) == 0 {
		return perception.NewLayout([]perception.Modality{{Kind: "visual", Dims: a.Dims.O}})
	}
	return perception.NewLayout(a.Modalities)
}

func (a AgentSpec) actionKinds() []world.ActionKind {
	if len(a.Actions) == 0 {
		kinds := make([]world.ActionKind, a.Dims.U)
		defaults := []world.ActionKind{world.Wait, world.Move, world.Interact, world.Observe, world.Communicate}
		for i := range kinds {
			kinds[i] = defaults[i%len(defaults)]
		}
		return kinds
	}
	return a.Actions
}

// Session bundles a running Scheduler with the handles it drives, so
// the CLI can build it fresh (run) or rehydrate it from persisted
// snapshots (step, after load) without duplicating the wiring twice.
type Session struct {
	World     *world.Fake
	Messaging interface {
		Flush()
	}
	Scheduler *scheduler.Scheduler
	Src       *tensor.Source
}

// NewSessionFromScenario builds a fresh Session with newly-created
// agents, per spec.md §6 "create(spec) -> id".
func NewSessionFromScenario(cfg ScenarioConfig, logger zerolog.Logger) (*Session, error) {
	w := world.NewFake()
	m := messaging.NewInProcess()
	src := tensor.NewSource(cfg.Seed)
	sched := scheduler.New(w, m, src, logger)
	sched.SetWorkers(maxInt(cfg.NumWorkers, 1))

	factory := agent.Factory{}
	for _, spec := range cfg.Agents {
		rec, err := factory.Create(spec.toConfig(), src)
		if err != nil {
			return nil, aierrors.New(aierrors.InvariantViolation, "main.NewSessionFromScenario", err)
		}
		sched.Register(handleFor(rec, spec, src))
	}
	return &Session{World: w, Messaging: m, Scheduler: sched, Src: src}, nil
}

func handleFor(rec *agent.Record, spec AgentSpec, src *tensor.Source) *scheduler.Handle {
	horizon := spec.Dims.T
	return &scheduler.Handle{
		Record:                rec,
		Layout:                spec.layout(),
		Actions:               perception.NewActionMapper(spec.actionKinds()),
		Engine:                inference.NewBeliefPropagation(),
		Planner:               planner.NewAdaptiveHorizon(spec.planner(), 1, maxInt(horizon, 1)),
		Weights:               policy.DefaultWeights(),
		Horizon:               horizon,
		Budget:                planner.Budget{MaxSimulations: 64, MaxNodes: 256, WallTime: 25 * time.Millisecond},
		EnergyPerAction:       0.1,
		MinEnergy:             1.0,
		ConfidenceThreshold:   0.2,
		TauPrune:              1e-3,
		ConsolidateEvery:      50,
		ConsolidateImportance: 0.7,
		OnlineLearning:        spec.OnlineLearning,
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// rehydrateHandle rebuilds the runtime wiring (Layout/Actions/Engine/
// Planner/Weights) a persistence.AgentSnapshot does not carry, for a
// Record reloaded from a Store. Memory and precision, likewise not
// persisted, are recreated with their defaults rather than left nil,
// since planner/inference/memory all dereference them unconditionally.
func rehydrateHandle(rec *agent.Record) *scheduler.Handle {
	if rec.Status == nil {
		rec.Status = agentstate.NewMachine()
	}
	if rec.Episodic == nil {
		rec.Episodic = memory.NewEpisodic(256)
	}
	if rec.Working == nil {
		rec.Working = memory.NewWorking(16)
	}
	if rec.LongTerm == nil {
		rec.LongTerm = memory.NewLongTerm(4096)
	}
	if rec.Precision == nil {
		rec.Precision = precision.NewController(32, 2.0, 0.1, 0.9, precision.Bounds{Min: 0.1, Max: 10})
	}
	if rec.Belief == nil && rec.Discrete != nil {
		rec.Belief = rec.Discrete.InitialBelief()
	}

	dims := genmodel.Dims{}
	if rec.Discrete != nil {
		dims = rec.Discrete.Dims
	}
	spec := AgentSpec{Dims: dims}
	return handleFor(rec, spec, nil)
}

// StateSummary is the CLI's rendering of spec.md §6
// "get_state(id) -> StateSummary": the subset of a Record a human
// operator inspects from the command line.
type StateSummary struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	Tick       int64     `json:"tick"`
	Position   [3]float64 `json:"position"`
	Energy     float64   `json:"energy"`
	Health     float64   `json:"health"`
	LastAction int       `json:"last_action"`
	Entropy    float64   `json:"belief_entropy"`
}

func summarize(rec *agent.Record) StateSummary {
	s := StateSummary{
		ID:         rec.ID.String(),
		Tick:       rec.Tick,
		Position:   rec.Position,
		Energy:     rec.Resources.Energy,
		Health:     rec.Resources.Health,
		LastAction: rec.LastAction,
	}
	if rec.Status != nil {
		s.Status = string(rec.Status.Status())
	}
	if cat, ok := rec.Belief.(*belief.Categorical); ok {
		s.Entropy = cat.Entropy()
	}
	return s
}
