// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package rnnlm

import (
	"testing"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/charrnn/vocab"
)

// fakeSession returns a fixed distribution per step (the last one repeats), and records the tokens fed.
type fakeSession struct {
	dists [][]float32
	fed   []int
}

func (f *fakeSession) ZeroState() State { return nil }

func (f *fakeSession) Step(token int, state State) ([]float32, State, error) {
	f.fed = append(f.fed, token)
	idx := min(len(f.fed), len(f.dists)) - 1
	return f.dists[idx], state, nil
}

// sequenceRand returns the given values in order, and counts the draws.
type sequenceRand struct {
	values []float64
	draws  int
}

func (r *sequenceRand) Float64() float64 {
	v := r.values[r.draws%len(r.values)]
	r.draws++
	return v
}

// testVocab has ids: <START>=0, <EOF>=1, <UNK>=2, "a"=3, "b"=4, " "=5.
func testVocab() *vocab.Vocabulary {
	return vocab.New([]string{"a", "b", " "})
}

func testConfig(vocabSize int) Config {
	cfg := DefaultConfig()
	cfg.RNNSize = 8
	cfg.NumLayers = 2
	cfg.VocabSize = vocabSize
	cfg.BatchSize = 2
	cfg.SeqLength = 3
	cfg.Seed = 42
	return cfg
}

// oneHot returns a distribution over the testVocab with all the mass on id.
func oneHot(id int) []float32 {
	dist := make([]float32, 6)
	dist[id] = 1
	return dist
}

func TestWeightedPick(t *testing.T) {
	weights := []float32{0.1, 0.2, 0.7}
	assert.Equal(t, 0, WeightedPick(weights, 0.05))
	assert.Equal(t, 1, WeightedPick(weights, 0.25))
	assert.Equal(t, 2, WeightedPick(weights, 0.9))

	// Unnormalized weights.
	assert.Equal(t, 1, WeightedPick([]float32{1, 2, 7}, 0.25))

	// One-hot always returns its index.
	for _, r := range []float64{0, 0.3, 0.5, 0.999} {
		assert.Equal(t, 2, WeightedPick([]float32{0, 0, 1, 0}, r), "r=%g", r)
	}
	assert.Equal(t, -1, WeightedPick(nil, 0.5))
}

func TestArgMaxIndex(t *testing.T) {
	assert.Equal(t, 2, argMaxIndex([]float32{0.1, 0.2, 0.7}))
	assert.Equal(t, 0, argMaxIndex([]float32{0.5, 0.5}))
	assert.Equal(t, -1, argMaxIndex(nil))
}

func TestSample(t *testing.T) {
	v := testVocab()
	model := must.M1(New(testConfig(v.Size()), false, true))

	t.Run("argmax", func(t *testing.T) {
		session := &fakeSession{dists: [][]float32{oneHot(3), oneHot(4), oneHot(1)}}
		got, err := model.Sample(session, v, SampleOptions{Sampling: SampleArgmax})
		require.NoError(t, err)
		assert.Equal(t, "a b", got)
		assert.Equal(t, []int{0, 3, 4}, session.fed)
	})

	t.Run("end token first", func(t *testing.T) {
		session := &fakeSession{dists: [][]float32{oneHot(1)}}
		got, err := model.Sample(session, v, SampleOptions{Sampling: SampleArgmax})
		require.NoError(t, err)
		assert.Equal(t, "", got)
		assert.Len(t, session.fed, 1)
	})

	t.Run("max tokens", func(t *testing.T) {
		session := &fakeSession{dists: [][]float32{oneHot(3)}}
		got, err := model.Sample(session, v, SampleOptions{MaxTokens: 3, Sampling: SampleWeighted})
		require.NoError(t, err)
		assert.Equal(t, "a a a", got)
		assert.Len(t, session.fed, 3)
	})

	t.Run("weighted", func(t *testing.T) {
		dist := []float32{0, 0, 0, 0.1, 0.2, 0.7}
		session := &fakeSession{dists: [][]float32{dist, dist, dist, oneHot(1)}}
		rng := &sequenceRand{values: []float64{0.05, 0.25, 0.9, 0.5}}
		got, err := model.Sample(session, v, SampleOptions{Sampling: SampleWeighted, Rand: rng})
		require.NoError(t, err)
		assert.Equal(t, "a b  ", got)
		assert.Equal(t, 4, rng.draws)
	})

	t.Run("weighted on space", func(t *testing.T) {
		session := &fakeSession{dists: [][]float32{
			{0, 0, 0, 0.2, 0.1, 0.7}, // After <START>: argmax -> " ".
			{0, 0, 0, 0.6, 0.4, 0},   // After " ": weighted with 0.9 -> "b".
			{0, 0.6, 0, 0.3, 0.1, 0}, // After "b": argmax -> <EOF>.
		}}
		rng := &sequenceRand{values: []float64{0.9}}
		got, err := model.Sample(session, v, SampleOptions{Sampling: SampleWeightedOnSpace, Rand: rng})
		require.NoError(t, err)
		assert.Equal(t, "  b", got)
		assert.Equal(t, 1, rng.draws)
	})

	t.Run("reversed", func(t *testing.T) {
		reversed := must.M1(New(testConfig(v.Size()), true, true))
		session := &fakeSession{dists: [][]float32{oneHot(3), oneHot(1), oneHot(0)}}
		got, err := reversed.Sample(session, v, SampleOptions{Sampling: SampleArgmax})
		require.NoError(t, err)
		// <EOF> is a regular token for a reversed model, and <START> ends it.
		assert.Equal(t, "a <EOF>", got)
		assert.Equal(t, 1, session.fed[0])
	})

	t.Run("invalid sampling", func(t *testing.T) {
		_, err := model.Sample(&fakeSession{dists: [][]float32{oneHot(1)}}, v, SampleOptions{Sampling: SamplingType(7)})
		require.Error(t, err)
	})

	t.Run("prediction out of vocabulary", func(t *testing.T) {
		session := &fakeSession{dists: [][]float32{{0, 0, 0, 0, 0, 0, 1}}}
		_, err := model.Sample(session, v, SampleOptions{Sampling: SampleArgmax})
		require.ErrorIs(t, err, vocab.ErrInvalidID)
	})
}

// tensorSession is a fakeSession that hands out a new state tensor on every call, and keeps them all.
type tensorSession struct {
	fakeSession
	states []State
}

func (s *tensorSession) newState() State {
	state := tensors.FromScalar(float32(len(s.states)))
	s.states = append(s.states, state)
	return state
}

func (s *tensorSession) ZeroState() State { return s.newState() }

func (s *tensorSession) Step(token int, state State) ([]float32, State, error) {
	probs, _, err := s.fakeSession.Step(token, state)
	return probs, s.newState(), err
}

func TestStatesReleased(t *testing.T) {
	v := testVocab()
	model := must.M1(New(testConfig(v.Size()), false, true))
	dists := [][]float32{oneHot(3), oneHot(4), oneHot(1)}

	session := &tensorSession{fakeSession: fakeSession{dists: dists}}
	_, err := model.Sample(session, v, SampleOptions{Sampling: SampleArgmax})
	require.NoError(t, err)
	require.Len(t, session.states, 4)
	for ii, state := range session.states {
		assert.False(t, state.Ok(), "state #%d was not released", ii)
	}

	session = &tensorSession{fakeSession: fakeSession{dists: dists}}
	_, err = model.Evaluate(session, v, []string{vocab.StartToken, "a", "b"})
	require.NoError(t, err)
	require.Len(t, session.states, 3)
	for ii, state := range session.states {
		assert.False(t, state.Ok(), "state #%d was not released", ii)
	}
}
