package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/active-inference/aifcore/agent"
	"github.com/active-inference/aifcore/agentstate"
	"github.com/active-inference/aifcore/belief"
	"github.com/active-inference/aifcore/genmodel"
	"github.com/google/uuid"
)

func testRecord(t *testing.T) *agent.Record {
	t.Helper()
	dims := genmodel.Dims{S: 3, O: 2, U: 2, T: 3}
	model := genmodel.NewDiscreteUniform(dims)
	return &agent.Record{
		ID:              uuid.New(),
		Position:        [3]float64{1, 2, 3},
		Orientation:     [4]float64{0, 0, 0, 1},
		Status:          agentstate.NewMachine(),
		Resources:       agent.Resources{Energy: 10, Health: 1, MemoryCapacity: 8},
		Personality:     agent.Personality{0.1, 0.2, 0.3, 0.4, 0.5},
		Capabilities:    map[string]bool{"observe": true},
		Discrete:        model,
		Belief:          belief.NewCategorical([]float64{0.2, 0.3, 0.5}),
		LastObservation: []float64{1, 0, 1},
		LastAction:      1,
		Tick:            7,
	}
}

func TestToSnapshotFromSnapshotRoundTripsDiscreteModelAndBelief(t *testing.T) {
	rec := testRecord(t)
	snap := ToSnapshot(rec)

	if snap.SchemaVersion != CurrentSchemaVersion {
		t.Fatalf("SchemaVersion = %d, want %d", snap.SchemaVersion, CurrentSchemaVersion)
	}
	if !snap.HasDiscreteModel {
		t.Fatal("HasDiscreteModel = false, want true")
	}
	if len(snap.BeliefP) != 3 {
		t.Fatalf("len(BeliefP) = %d, want 3", len(snap.BeliefP))
	}

	snap.ID = rec.ID.String()
	rebuilt := FromSnapshot(snap)

	if rebuilt.Position != rec.Position {
		t.Errorf("Position = %v, want %v", rebuilt.Position, rec.Position)
	}
	if rebuilt.Discrete == nil {
		t.Fatal("rebuilt.Discrete is nil")
	}
	if rows, cols := rebuilt.Discrete.A.Dims(); rows != 2 || cols != 3 {
		t.Errorf("rebuilt A dims = (%d,%d), want (2,3)", rows, cols)
	}
	cat, ok := rebuilt.Belief.(*belief.Categorical)
	if !ok {
		t.Fatalf("rebuilt.Belief type = %T, want *belief.Categorical", rebuilt.Belief)
	}
	if cat.P.AtVec(2) != 0.5 {
		t.Errorf("rebuilt belief P[2] = %v, want 0.5", cat.P.AtVec(2))
	}
}

func TestMemStoreSaveLoadRoundTrips(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	rec := testRecord(t)
	snap := ToSnapshot(rec)
	snap.ID = rec.ID.String()
	snap.Status = "idle"

	if err := s.SaveAgent(ctx, snap); err != nil {
		t.Fatal(err)
	}
	got, err := s.LoadAgent(ctx, snap.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != snap.ID || got.Tick != snap.Tick {
		t.Errorf("LoadAgent = %+v, want ID=%s Tick=%d", got, snap.ID, snap.Tick)
	}
}

func TestMemStoreLoadMissingReturnsError(t *testing.T) {
	s := NewMemStore()
	if _, err := s.LoadAgent(context.Background(), "missing"); err == nil {
		t.Fatal("LoadAgent(missing) = nil error, want error")
	}
}

func TestMemStoreListAgentsHonorsFilter(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	s.SaveAgent(ctx, AgentSnapshot{SchemaVersion: CurrentSchemaVersion, ID: "a", Status: "idle"})
	s.SaveAgent(ctx, AgentSnapshot{SchemaVersion: CurrentSchemaVersion, ID: "b", Status: "offline"})

	ids, err := s.ListAgents(ctx, Filter{StatusEquals: "idle"})
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != "a" {
		t.Errorf("ListAgents(idle) = %v, want [a]", ids)
	}

	all, err := s.ListAgents(ctx, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("ListAgents({}) = %v, want 2 entries", all)
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.gob")
	ctx := context.Background()

	fs1, err := OpenFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := fs1.SaveAgent(ctx, AgentSnapshot{SchemaVersion: CurrentSchemaVersion, ID: "a", Tick: 3}); err != nil {
		t.Fatal(err)
	}
	if err := fs1.Flush(); err != nil {
		t.Fatal(err)
	}

	fs2, err := OpenFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	got, err := fs2.LoadAgent(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Tick != 3 {
		t.Errorf("reopened Tick = %d, want 3", got.Tick)
	}
}

func TestOpenFileStoreMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.gob")
	fs, err := OpenFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	ids, err := fs.ListAgents(context.Background(), Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Errorf("ListAgents on fresh FileStore = %v, want empty", ids)
	}
}

func TestMemStoreDeleteAgentRemovesEntry(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	s.SaveAgent(ctx, AgentSnapshot{SchemaVersion: CurrentSchemaVersion, ID: "a"})

	if err := s.DeleteAgent(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadAgent(ctx, "a"); err == nil {
		t.Fatal("LoadAgent after delete = nil error, want error")
	}
	if err := s.DeleteAgent(ctx, "a"); err == nil {
		t.Fatal("DeleteAgent twice = nil error, want error")
	}
}
