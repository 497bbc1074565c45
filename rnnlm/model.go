// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package rnnlm implements a character/word level recurrent neural network language model.
//
// A stack of recurrent cells (vanilla RNN, GRU or LSTM) is wired to an embedding lookup, a softmax
// projection and a sequence cross-entropy loss. The package provides the three modes of operation of
// the model:
//
//   - Training: see Trainer, which clips the gradients by their global norm and applies them with Adam.
//   - Sampling: see Model.Sample, which generates tokens one at a time feeding back its own output.
//   - Evaluation: see Model.Evaluate, which scores a held-out sequence token by token.
//
// The learned parameters live in the GoMLX context.Context owned by the Model. Sampling and evaluation
// run through a Session, which only reads them.
package rnnlm

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/context/initializers"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/gomlx/gomlx/pkg/ml/train/losses"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/pkg/errors"

	"github.com/gomlx/charrnn/vocab"
)

var (
	// DType of the model parameters and activations.
	DType = dtypes.Float32

	// InputDType of the token ids.
	InputDType = dtypes.Int32
)

// Scope where the model variables are created. Layer i of the recurrent stack uses "<Scope>/cell_<i>".
const Scope = "rnnlm"

// Model is the recurrent language model. Create it with New.
type Model struct {
	cfg          Config
	reverseInput bool
	infer        bool

	ctx   *context.Context
	cells *MultiCell
}

var _ train.ModelFn = (*Model)(nil).ModelGraph

// New creates a model with a new context holding its parameters.
//
// If infer is set the model is built for single-step inference: BatchSize and SeqLength are forced to 1,
// and the decoder feeds back its own greedy predictions.
// If reverseInput is set the model is meant for token sequences in reverse order, and the start and end
// tokens are swapped (see vocab.Boundaries).
//
// It fails with an error wrapping ErrUnsupportedModel if cfg.Model is not a known CellType.
func New(cfg Config, reverseInput, infer bool) (*Model, error) {
	return NewWithContext(context.New(), cfg, reverseInput, infer)
}

// NewWithContext is like New, but uses the given context to hold the parameters.
// Use it to share the parameters of a model trained or restored elsewhere.
func NewWithContext(ctx *context.Context, cfg Config, reverseInput, infer bool) (*Model, error) {
	if infer {
		cfg.BatchSize = 1
		cfg.SeqLength = 1
	}
	if !cfg.Model.IsACellType() {
		return nil, errors.Wrapf(ErrUnsupportedModel, "model type %s", cfg.Model)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cells, err := NewMultiCell(cfg.Model, cfg.NumLayers, cfg.RNNSize)
	if err != nil {
		return nil, err
	}
	m := &Model{
		cfg:          cfg,
		reverseInput: reverseInput,
		infer:        infer,
		ctx:          ctx,
		cells:        cells,
	}
	if !infer {
		cfg.SetParams(ctx)
	}
	if cfg.Seed != 0 {
		ctx.SetParam(context.ParamInitialSeed, cfg.Seed)
	}
	// The learning rate is zero until set with SetLearningRate.
	optimizers.LearningRateVar(ctx, DType, 0)
	return m, nil
}

// ForInference returns a single-step inference model sharing this model's parameters.
func (m *Model) ForInference() *Model {
	if m.infer {
		return m
	}
	cfg := m.cfg
	cfg.BatchSize, cfg.SeqLength = 1, 1
	return &Model{
		cfg:          cfg,
		reverseInput: m.reverseInput,
		infer:        true,
		ctx:          m.ctx,
		cells:        m.cells,
	}
}

// Config returns the model configuration. For inference models BatchSize and SeqLength are 1.
func (m *Model) Config() Config { return m.cfg }

// Context holding the model parameters.
func (m *Model) Context() *context.Context { return m.ctx }

// IsInference returns whether the model was built for single-step inference.
func (m *Model) IsInference() bool { return m.infer }

// IsReversed returns whether the model is meant for reversed sequences.
func (m *Model) IsReversed() bool { return m.reverseInput }

// StartToken is the token that starts every sampled sequence.
func (m *Model) StartToken() string {
	start, _ := vocab.Boundaries(m.reverseInput)
	return start
}

// EndToken is the token that ends a sampled sequence.
func (m *Model) EndToken() string {
	_, end := vocab.Boundaries(m.reverseInput)
	return end
}

// UnknownToken stands for tokens missing from the vocabulary.
func (m *Model) UnknownToken() string { return vocab.UnknownToken }

// InputShape is the shape of the input token ids: [batchSize, seqLength].
func (m *Model) InputShape() shapes.Shape {
	return shapes.Make(InputDType, m.cfg.BatchSize, m.cfg.SeqLength)
}

// TargetShape is the shape of the next-token ids, the same as InputShape.
func (m *Model) TargetShape() shapes.Shape {
	return m.InputShape()
}

// StateShape is the shape of the packed hidden state for the model's batch size.
func (m *Model) StateShape() shapes.Shape {
	return m.cells.StateShape(DType, m.cfg.BatchSize)
}

// SetLearningRate sets the learning rate used by the next training steps.
func (m *Model) SetLearningRate(lr float64) error {
	lrVar := optimizers.LearningRateVar(m.ctx, DType, 0)
	return lrVar.SetValue(tensors.FromScalarAndDimensions(float32(lr)))
}

// LearningRate returns the current learning rate.
func (m *Model) LearningRate() (float64, error) {
	lrVar := optimizers.LearningRateVar(m.ctx, DType, 0)
	value, err := lrVar.Value()
	if err != nil {
		return 0, err
	}
	return float64(tensors.ToScalar[float32](value)), nil
}

// parameters returns the projection and embedding variables:
// softmax_w [rnnSize, vocabSize], softmax_b [vocabSize] and embedding [vocabSize, rnnSize].
func (m *Model) parameters(ctx *context.Context, g *Graph) (softmaxW, softmaxB, embedding *Node) {
	rnnSize, vocabSize := m.cfg.RNNSize, m.cfg.VocabSize
	softmaxW = ctx.VariableWithShape("softmax_w", shapes.Make(DType, rnnSize, vocabSize)).ValueGraph(g)
	softmaxB = ctx.WithInitializer(initializers.Zero).
		VariableWithShape("softmax_b", shapes.Make(DType, vocabSize)).ValueGraph(g)
	embedding = ctx.VariableWithShape("embedding", shapes.Make(DType, vocabSize, rnnSize)).ValueGraph(g)
	return
}

// scope returns the context where the model variables live. Variables are created on first use and
// reused on every step after that.
func (m *Model) scope(ctx *context.Context) *context.Context {
	return ctx.In(Scope).Checked(false)
}

// DecoderGraph unrolls the recurrent stack over the inputs, shaped [batchSize, seqLength], starting
// from initialState (see StateShape).
//
// For inference models, every step after the first takes as input the arg-max of the previous step's
// projected output, with no gradient flowing through that path, instead of the given input.
//
// It returns the outputs of the last layer for each step, shaped [batchSize, seqLength, rnnSize], and
// the final state.
func (m *Model) DecoderGraph(ctx *context.Context, inputs, initialState *Node) (outputs, finalState *Node) {
	if inputs.Rank() != 2 {
		exceptions.Panicf("inputs must be shaped [batchSize, seqLength], got %s", inputs.Shape())
	}
	g := inputs.Graph()
	ctx = m.scope(ctx)
	softmaxW, softmaxB, embedding := m.parameters(ctx, g)
	seqLength := inputs.Shape().Dimensions[1]

	state := initialState
	stepOutputs := make([]*Node, seqLength)
	var prev *Node
	for step := range seqLength {
		var tokens *Node // [batchSize, 1]
		if m.infer && prev != nil {
			logits := Add(Einsum("bh,hv->bv", prev, softmaxW), ExpandAxes(softmaxB, 0))
			tokens = StopGradient(ExpandAxes(ArgMax(logits, -1, InputDType), -1))
		} else {
			tokens = Slice(inputs, AxisRange(), AxisElem(step))
		}
		x := Gather(embedding, tokens) // [batchSize, rnnSize]
		prev, state = m.cells.Step(ctx, x, state)
		stepOutputs[step] = prev
	}
	outputs = Stack(stepOutputs, 1)
	finalState = state
	return
}

// LogitsGraph projects the decoder outputs to the vocabulary: [batchSize, seqLength, vocabSize].
func (m *Model) LogitsGraph(ctx *context.Context, outputs *Node) *Node {
	ctx = m.scope(ctx)
	softmaxW, softmaxB, _ := m.parameters(ctx, outputs.Graph())
	return Add(Einsum("bsh,hv->bsv", outputs, softmaxW), Reshape(softmaxB, 1, 1, m.cfg.VocabSize))
}

// ProbabilitiesGraph converts logits to the next-token probability distributions.
func ProbabilitiesGraph(logits *Node) *Node {
	return Softmax(logits, -1)
}

// ModelGraph implements train.ModelFn: it runs the decoder from a zero state over inputs[0] and returns
// the logits.
func (m *Model) ModelGraph(ctx *context.Context, _ any, inputs []*Node) []*Node {
	x := inputs[0]
	batchSize := x.Shape().Dimensions[0]
	state := m.cells.ZeroStateGraph(x.Graph(), DType, batchSize)
	outputs, _ := m.DecoderGraph(ctx, x, state)
	return []*Node{m.LogitsGraph(ctx, outputs)}
}

// LossGraph is the sequence loss: the cross-entropy of each example-step, weighted by labels[1] when
// given (uniform 1 otherwise), and averaged over batch and sequence.
//
// labels[0] holds the target ids shaped [batchSize, seqLength] or [batchSize, seqLength, 1].
// It can be used as a train.LossFn.
func LossGraph(labels, predictions []*Node) *Node {
	targets := labels[0]
	logits := predictions[0]
	if targets.Rank() == logits.Rank()-1 {
		targets = ExpandAxes(targets, -1)
	}
	lossLabels := []*Node{targets}
	if len(labels) > 1 {
		lossLabels = append(lossLabels, labels[1])
	} else {
		lossLabels = append(lossLabels, Ones(logits.Graph(), shapes.Make(logits.DType(), targets.Shape().Dimensions[:2]...)))
	}
	return ReduceAllMean(losses.SparseCategoricalCrossEntropyLogits(lossLabels, predictions))
}

// StepGraph runs one step of the model for a single token, shaped [1, 1] (or a scalar), with the packed
// state shaped [numLayers, stateParts, 1, rnnSize].
// It returns the next-token probabilities, shaped [vocabSize], and the next state.
func (m *Model) StepGraph(ctx *context.Context, token, state *Node) (probs, nextState *Node) {
	token = Reshape(ConvertDType(token, InputDType), 1, 1)
	outputs, nextState := m.DecoderGraph(ctx, token, state)
	logits := m.LogitsGraph(ctx, outputs)
	probs = Reshape(ProbabilitiesGraph(logits), m.cfg.VocabSize)
	return
}
