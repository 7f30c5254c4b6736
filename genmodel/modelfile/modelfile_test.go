package modelfile

import (
	"strings"
	"testing"
)

const validModel = `# a tiny 2-state, 2-obs, 1-action model
states 2
observations 2
actions 1
horizon 3

A
0.9 0.1
0.1 0.9

B 0
1 0
0 1

C
0 0 0
0 0 0

D
0.5 0.5
`

func TestParseValidModel(t *testing.T) {
	m, err := Parse(strings.NewReader(validModel))
	if err != nil {
		t.Fatalf("Parse failed on a valid model: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("parsed model failed validation: %v", err)
	}
}

func TestParseMissingHeaderField(t *testing.T) {
	bad := strings.Replace(validModel, "actions 1\n", "", 1)
	if _, err := Parse(strings.NewReader(bad)); err == nil {
		t.Error("Parse accepted a model missing the actions header field")
	}
}

func TestParseMalformedNumber(t *testing.T) {
	bad := strings.Replace(validModel, "0.9 0.1", "0.9 notanumber", 1)
	if _, err := Parse(strings.NewReader(bad)); err == nil {
		t.Error("Parse accepted a non-numeric matrix entry")
	}
}

func TestParseRowLengthMismatch(t *testing.T) {
	bad := strings.Replace(validModel, "0.1 0.9\n", "0.1 0.9 0.2\n", 1)
	if _, err := Parse(strings.NewReader(bad)); err == nil {
		t.Error("Parse accepted an A block row with the wrong column count")
	}
}

func TestParseBActionOutOfRange(t *testing.T) {
	bad := strings.Replace(validModel, "B 0", "B 5", 1)
	if _, err := Parse(strings.NewReader(bad)); err == nil {
		t.Error("Parse accepted a B block with an out-of-range action index")
	}
}

func TestParseNonStochasticColumnRejected(t *testing.T) {
	bad := strings.Replace(validModel, "0.9 0.1\n0.1 0.9", "0.5 0.5\n0.5 0.4", 1)
	if _, err := Parse(strings.NewReader(bad)); err == nil {
		t.Error("Parse accepted an A block that is not column-stochastic")
	}
}
