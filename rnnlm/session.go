// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package rnnlm

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/pkg/errors"
)

// State is the hidden state carried from one Session.Step to the next.
type State = *tensors.Tensor

// Session runs the model one token at a time. It doesn't change the model parameters.
type Session interface {
	// ZeroState returns the state that starts every independent sequence.
	ZeroState() State

	// Step feeds token (an id) with the given state, and returns the probabilities of the next token
	// (one per vocabulary id) and the updated state.
	//
	// The caller owns both states: Step doesn't release the given one, see FinalizeState.
	Step(token int, state State) (probs []float32, next State, err error)
}

// FinalizeState releases the buffers of a state no longer needed. A nil state is ignored.
func FinalizeState(state State) {
	if state != nil {
		_ = state.FinalizeAll()
	}
}

// advanceState releases the previous state once the session returned a different next one.
func advanceState(prev, next State) State {
	if prev != next {
		FinalizeState(prev)
	}
	return next
}

// ExecSession is a Session that runs the inference graph of a Model with a GoMLX backend.
type ExecSession struct {
	model *Model
	exec  *context.Exec
}

var _ Session = (*ExecSession)(nil)

// NewSession creates a Session for the model. If the model is not an inference model, its inference
// version (see Model.ForInference) is used.
//
// Parameters not yet trained or restored are initialized when first used.
func NewSession(backend backends.Backend, model *Model) (*ExecSession, error) {
	model = model.ForInference()
	exec, err := context.NewExec(backend, model.ctx, model.StepGraph)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create inference session")
	}
	return &ExecSession{model: model, exec: exec}, nil
}

// Model returns the inference model run by the session.
func (s *ExecSession) Model() *Model { return s.model }

// ZeroState implements Session.
func (s *ExecSession) ZeroState() State {
	shape := s.model.StateShape()
	return tensors.FromFlatDataAndDimensions(make([]float32, shape.Size()), shape.Dimensions...)
}

// Step implements Session.
func (s *ExecSession) Step(token int, state State) (probs []float32, next State, err error) {
	if token < 0 || token >= s.model.cfg.VocabSize {
		return nil, nil, errors.Errorf("token id %d out of range for vocab_size=%d", token, s.model.cfg.VocabSize)
	}
	var outputs []*tensors.Tensor
	err = exceptions.TryCatch[error](func() {
		outputs = s.exec.MustExec([][]int32{{int32(token)}}, state)
	})
	if err != nil {
		return nil, nil, errors.WithMessagef(err, "failed to run model step for token %d", token)
	}
	probs = tensors.MustCopyFlatData[float32](outputs[0])
	outputs[0].FinalizeAll()
	next = outputs[1]
	return
}

// Finalize releases the compiled graphs. The session can't be used afterwards.
func (s *ExecSession) Finalize() {
	s.exec.Finalize()
}
