// Package modelfile parses the two-section text format used to
// define a discrete generative model offline: a metadata header
// followed by named A/B/C/D blocks. Grounded on bufio.Scanner-based
// line-oriented parsing, the idiomatic stdlib approach for a small
// bespoke format with no third-party lexer in the retrieved pack
// (see DESIGN.md).
//
// Format:
//
//	# comment lines start with '#' and are ignored
//	states 3
//	observations 4
//	actions 2
//	horizon 5
//
//	A
//	0.5 0.25 0.1
//	0.2 0.6 0.1
//	0.1 0.1 0.7
//	0.2 0.05 0.1
//
//	B 0
//	1 0 0
//	0 1 0
//	0 0 1
//	...
package modelfile

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/active-inference/aifcore/aierrors"
	"github.com/active-inference/aifcore/genmodel"
	"gonum.org/v1/gonum/mat"
)

// Meta holds the parsed header fields.
type Meta struct {
	States, Observations, Actions, Horizon int
}

// Parse reads a model file from r and returns a fully populated
// Discrete model whose Dims come from the header fields.
func Parse(r io.Reader) (*genmodel.Discrete, error) {
	p := &parser{scanner: bufio.NewScanner(r)}
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.build()
}

type block struct {
	name string
	// action is only set for B blocks ("B <u>").
	action int
	rows   [][]float64
	line   int
}

type parser struct {
	scanner *bufio.Scanner
	lineNo  int
	meta    Meta
	blocks  []block
}

func (p *parser) run() error {
	var cur *block
	for p.scanner.Scan() {
		p.lineNo++
		line := strings.TrimSpace(p.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		if cur == nil {
			if err := p.tryHeaderField(fields); err == nil {
				continue
			}
		}

		if isBlockHeader(fields) {
			if cur != nil {
				p.blocks = append(p.blocks, *cur)
			}
			b, err := p.newBlock(fields)
			if err != nil {
				return err
			}
			cur = b
			continue
		}

		if cur == nil {
			return p.parseErr("expected a header field or block name")
		}
		row, err := p.parseRow(fields)
		if err != nil {
			return err
		}
		cur.rows = append(cur.rows, row)
	}
	if cur != nil {
		p.blocks = append(p.blocks, *cur)
	}
	if err := p.scanner.Err(); err != nil {
		return aierrors.New(aierrors.ParseError, "modelfile.Parse", err)
	}
	return nil
}

func (p *parser) tryHeaderField(fields []string) error {
	if len(fields) != 2 {
		return errNotHeader
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return errNotHeader
	}
	switch fields[0] {
	case "states":
		p.meta.States = n
	case "observations":
		p.meta.Observations = n
	case "actions":
		p.meta.Actions = n
	case "horizon":
		p.meta.Horizon = n
	default:
		return errNotHeader
	}
	return nil
}

func isBlockHeader(fields []string) bool {
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "A", "B", "C", "D":
		return true
	}
	return false
}

func (p *parser) newBlock(fields []string) (*block, error) {
	b := &block{name: fields[0], line: p.lineNo}
	if b.name == "B" {
		if len(fields) != 2 {
			return nil, p.parseErr("B block requires an action index, e.g. \"B 0\"")
		}
		u, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, p.parseErr(fmt.Sprintf("invalid action index %q", fields[1]))
		}
		b.action = u
	}
	return b, nil
}

func (p *parser) parseRow(fields []string) ([]float64, error) {
	row := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, p.parseErrCol(i+1, fmt.Sprintf("invalid number %q", f))
		}
		row[i] = v
	}
	return row, nil
}

func (p *parser) parseErr(msg string) error {
	return aierrors.New(aierrors.ParseError, "modelfile.Parse",
		fmt.Errorf("line %d: %s", p.lineNo, msg))
}

func (p *parser) parseErrCol(col int, msg string) error {
	return aierrors.New(aierrors.ParseError, "modelfile.Parse",
		fmt.Errorf("line %d, col %d: %s", p.lineNo, col, msg))
}

var errNotHeader = fmt.Errorf("not a header field")

func (p *parser) build() (*genmodel.Discrete, error) {
	if p.meta.States == 0 || p.meta.Observations == 0 || p.meta.Actions == 0 || p.meta.Horizon == 0 {
		return nil, aierrors.New(aierrors.ParseError, "modelfile.Parse",
			fmt.Errorf("missing or zero-valued header field (states/observations/actions/horizon)"))
	}
	d := genmodel.Dims{S: p.meta.States, O: p.meta.Observations, U: p.meta.Actions, T: p.meta.Horizon}
	m := genmodel.NewDiscreteUniform(d)

	for _, b := range p.blocks {
		var err error
		switch b.name {
		case "A":
			err = fillDense(m.A, b.rows, d.O, d.S, b.line)
		case "B":
			if b.action < 0 || b.action >= d.U {
				err = fmt.Errorf("line %d: action index %d out of range [0,%d)", b.line, b.action, d.U)
			} else {
				err = fillDense(m.B[b.action], b.rows, d.S, d.S, b.line)
			}
		case "C":
			err = fillDense(m.C, b.rows, d.O, d.T, b.line)
		case "D":
			err = fillVec(m.D, b.rows, d.S, b.line)
		}
		if err != nil {
			return nil, aierrors.New(aierrors.ParseError, "modelfile.Parse", err)
		}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func fillDense(dst *mat.Dense, rows [][]float64, r, c, line int) error {
	if len(rows) != r {
		return fmt.Errorf("block starting at line %d: expected %d rows, got %d", line, r, len(rows))
	}
	for i, row := range rows {
		if len(row) != c {
			return fmt.Errorf("block starting at line %d: row %d has %d columns, want %d",
				line, i, len(row), c)
		}
		for j, v := range row {
			dst.Set(i, j, v)
		}
	}
	return nil
}

func fillVec(dst *mat.VecDense, rows [][]float64, n, line int) error {
	flat := make([]float64, 0, n)
	for _, row := range rows {
		flat = append(flat, row...)
	}
	if len(flat) != n {
		return fmt.Errorf("block starting at line %d: expected %d values, got %d", line, n, len(flat))
	}
	for i, v := range flat {
		dst.SetVec(i, v)
	}
	return nil
}
