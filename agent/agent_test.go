package agent

import (
	"testing"

	"github.com/active-inference/aifcore/genmodel"
	"github.com/active-inference/aifcore/tensor"
)

func testDims() genmodel.Dims {
	return genmodel.Dims{S: 3, O: 3, U: 2, T: 3}
}

func TestFactoryCreateExplorerAssignsIDAndBuildsRecord(t *testing.T) {
	cfg := &ExplorerConfig{Dims: testDims(), Alpha0: 1.0, NoveltyBonus: 0.5}
	src := tensor.NewSource(1)
	rec, err := Factory{}.Create(cfg, src)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if rec.ID.String() == "" {
		t.Error("expected a non-empty UUID")
	}
	if rec.Discrete == nil {
		t.Fatal("expected a discrete generative model")
	}
	if rec.Belief == nil {
		t.Error("expected an initial belief")
	}
	if rec.Status.Status() != "idle" {
		t.Errorf("expected initial status idle, got %s", rec.Status.Status())
	}
}

func TestFactoryCreateMerchantBiasesTradeObservation(t *testing.T) {
	cfg := &MerchantConfig{Dims: testDims(), TradeBonus: 2.0, TradeObsIdx: 1}
	src := tensor.NewSource(2)
	rec, err := Factory{}.Create(cfg, src)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if rec.Discrete.C.At(1, 0) <= rec.Discrete.C.At(0, 0) {
		t.Error("expected the trade observation row to carry a higher log-preference")
	}
}

func TestValidateRejectsNonPositiveDims(t *testing.T) {
	cfg := &ExplorerConfig{Dims: genmodel.Dims{}, Alpha0: 1.0}
	if err := cfg.Validate(); err == nil {
		t.Error("expected Validate to reject zero-valued dims")
	}
}

func TestValidateRejectsOutOfRangeTradeIndex(t *testing.T) {
	cfg := &MerchantConfig{Dims: testDims(), TradeObsIdx: 99}
	if err := cfg.Validate(); err == nil {
		t.Error("expected Validate to reject an out-of-range trade observation index")
	}
}

func TestLookupReturnsRegisteredArchetypes(t *testing.T) {
	if _, ok := Lookup(Explorer); !ok {
		t.Error("expected Explorer to be registered")
	}
	if _, ok := Lookup(Merchant); !ok {
		t.Error("expected Merchant to be registered")
	}
	if _, ok := Lookup(Type("nonexistent")); ok {
		t.Error("expected an unregistered Type to miss")
	}
}

func TestTypedConfigRoundTripsThroughJSON(t *testing.T) {
	cfg := &ExplorerConfig{Dims: testDims(), Alpha0: 1.5, NoveltyBonus: 0.25}
	tc := NewTypedConfig(cfg)

	data, err := tc.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}

	var out TypedConfig
	if err := out.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if out.Type != Explorer {
		t.Errorf("Type = %v, want %v", out.Type, Explorer)
	}
	got, ok := out.Config.(*ExplorerConfig)
	if !ok {
		t.Fatalf("Config round-tripped to %T, want *ExplorerConfig", out.Config)
	}
	if got.Alpha0 != 1.5 || got.NoveltyBonus != 0.25 {
		t.Errorf("round-tripped config = %+v, want Alpha0=1.5 NoveltyBonus=0.25", got)
	}
}

func TestSortGoalsByPriorityDescending(t *testing.T) {
	rec := &Record{Goals: []Goal{
		{ID: "a", Priority: 0.2},
		{ID: "b", Priority: 0.9},
		{ID: "c", Priority: 0.5},
	}}
	rec.SortGoalsByPriority()
	want := []string{"b", "c", "a"}
	for i, g := range rec.Goals {
		if g.ID != want[i] {
			t.Errorf("Goals[%d].ID = %s, want %s", i, g.ID, want[i])
		}
	}
}
