// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package rnnlm

import (
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/context/initializers"
	"github.com/pkg/errors"
)

// Cell is one layer of the recurrent stack, advanced one time step at a time.
//
// The state of a cell is a list of StateParts() nodes, each shaped [batchSize, hiddenSize].
type Cell interface {
	// StateParts is the number of [batchSize, hiddenSize] tensors that make the cell state.
	StateParts() int

	// Step takes the input x shaped [batchSize, inputSize] and the previous state, and returns the
	// cell output shaped [batchSize, hiddenSize] and the next state.
	//
	// Variables are created (or reused) in ctx, so it must be called with the same scope at every step.
	Step(ctx *context.Context, x *Node, state []*Node) (output *Node, next []*Node)
}

// NewCell creates a cell of the given type.
func NewCell(cellType CellType, hiddenSize int) (Cell, error) {
	switch cellType {
	case CellRNN:
		return &basicCell{hiddenSize: hiddenSize}, nil
	case CellGRU:
		return &gruCell{hiddenSize: hiddenSize}, nil
	case CellLSTM:
		return &lstmCell{hiddenSize: hiddenSize, forgetBias: 1.0}, nil
	}
	return nil, errors.Wrapf(ErrUnsupportedModel, "cell type %s", cellType)
}

// linear projects the concatenation of the operands (all shaped [batchSize, *]) to outputSize,
// using a "kernel" and a "bias" variable in ctx.
func linear(ctx *context.Context, operands []*Node, outputSize int, biasInit context.VariableInitializer) *Node {
	x := operands[0]
	if len(operands) > 1 {
		x = Concatenate(operands, -1)
	}
	g := x.Graph()
	dtype := x.DType()
	inputSize := x.Shape().Dimensions[x.Rank()-1]
	kernel := ctx.VariableWithShape("kernel", shapes.Make(dtype, inputSize, outputSize)).ValueGraph(g)
	bias := ctx.WithInitializer(biasInit).
		VariableWithShape("bias", shapes.Make(dtype, outputSize)).ValueGraph(g)
	return Add(Einsum("bi,io->bo", x, kernel), ExpandAxes(bias, 0))
}

// basicCell is the vanilla RNN: h' = tanh([x, h]·W + b).
type basicCell struct {
	hiddenSize int
}

func (c *basicCell) StateParts() int { return 1 }

func (c *basicCell) Step(ctx *context.Context, x *Node, state []*Node) (*Node, []*Node) {
	h := Tanh(linear(ctx, []*Node{x, state[0]}, c.hiddenSize, initializers.Zero))
	return h, []*Node{h}
}

// gruCell is the gated recurrent unit.
//
// Gates reset (r) and update (u) start biased to 1, so initially the cell mostly keeps its state.
type gruCell struct {
	hiddenSize int
}

func (c *gruCell) StateParts() int { return 1 }

func (c *gruCell) Step(ctx *context.Context, x *Node, state []*Node) (*Node, []*Node) {
	h := state[0]
	gates := Sigmoid(linear(ctx.In("gates"), []*Node{x, h}, 2*c.hiddenSize, initializers.One))
	parts := Split(gates, -1, 2)
	r, u := parts[0], parts[1]
	candidate := Tanh(linear(ctx.In("candidate"), []*Node{x, Mul(r, h)}, c.hiddenSize, initializers.Zero))
	next := Add(Mul(u, h), Mul(OneMinus(u), candidate))
	return next, []*Node{next}
}

// lstmCell is the basic LSTM without peepholes. Its state is (c, h), in this order.
type lstmCell struct {
	hiddenSize int
	forgetBias float64
}

func (c *lstmCell) StateParts() int { return 2 }

func (c *lstmCell) Step(ctx *context.Context, x *Node, state []*Node) (*Node, []*Node) {
	cell, h := state[0], state[1]
	proj := linear(ctx, []*Node{x, h}, 4*c.hiddenSize, initializers.Zero)
	// i: input gate, j: new input, f: forget gate, o: output gate.
	parts := Split(proj, -1, 4)
	i, j, f, o := parts[0], parts[1], parts[2], parts[3]
	nextCell := Add(
		Mul(cell, Sigmoid(AddScalar(f, c.forgetBias))),
		Mul(Sigmoid(i), Tanh(j)))
	nextH := Mul(Tanh(nextCell), Sigmoid(o))
	return nextH, []*Node{nextCell, nextH}
}

// MultiCell stacks numLayers cells of the same type, the output of one layer being the input of the next.
//
// Its state is packed in a single node shaped [numLayers, stateParts, batchSize, hiddenSize].
type MultiCell struct {
	cells      []Cell
	hiddenSize int
}

// NewMultiCell creates the stack of cells.
func NewMultiCell(cellType CellType, numLayers, hiddenSize int) (*MultiCell, error) {
	m := &MultiCell{hiddenSize: hiddenSize}
	for range numLayers {
		cell, err := NewCell(cellType, hiddenSize)
		if err != nil {
			return nil, err
		}
		m.cells = append(m.cells, cell)
	}
	return m, nil
}

// NumLayers in the stack.
func (m *MultiCell) NumLayers() int { return len(m.cells) }

// StateParts of each layer.
func (m *MultiCell) StateParts() int { return m.cells[0].StateParts() }

// StateShape returns the shape of the packed state for the given batch size.
func (m *MultiCell) StateShape(dtype dtypes.DType, batchSize int) shapes.Shape {
	return shapes.Make(dtype, m.NumLayers(), m.StateParts(), batchSize, m.hiddenSize)
}

// ZeroStateGraph returns the packed zero state for the given batch size.
func (m *MultiCell) ZeroStateGraph(g *Graph, dtype dtypes.DType, batchSize int) *Node {
	return Zeros(g, m.StateShape(dtype, batchSize))
}

// Step advances all layers one time step. Layer i keeps its variables under scope "cell_<i>".
func (m *MultiCell) Step(ctx *context.Context, x, state *Node) (output, next *Node) {
	numParts := m.StateParts()
	nextLayers := make([]*Node, len(m.cells))
	output = x
	for layer, cell := range m.cells {
		layerState := make([]*Node, numParts)
		for part := range numParts {
			layerState[part] = Squeeze(Slice(state, AxisElem(layer), AxisElem(part)), 0, 1)
		}
		var layerNext []*Node
		output, layerNext = cell.Step(ctx.Inf("cell_%d", layer), output, layerState)
		nextLayers[layer] = Stack(layerNext, 0)
	}
	next = Stack(nextLayers, 0)
	return
}
