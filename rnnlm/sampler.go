// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package rnnlm

import (
	"math/rand/v2"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/charrnn/vocab"
)

// SamplingType selects how the next token is picked from the predicted distribution.
//
//go:generate go tool enumer -type=SamplingType -trimprefix=Sample -transform=snake -text -json -yaml -output=gen_samplingtype_enumer.go
type SamplingType int

const (
	// SampleArgmax always picks the most likely token.
	SampleArgmax SamplingType = iota

	// SampleWeighted draws the token at random, weighted by the distribution.
	SampleWeighted

	// SampleWeightedOnSpace draws at random after a space token, and picks the most likely token otherwise:
	// it randomizes the start of each word.
	SampleWeightedOnSpace
)

// DefaultMaxTokens is the default maximum number of tokens generated by Model.Sample.
const DefaultMaxTokens = 500

// Rand is the source of uniform random numbers in [0, 1) used by weighted sampling.
// A *rand.Rand from math/rand/v2 implements it.
type Rand interface {
	Float64() float64
}

// SampleOptions configures Model.Sample.
type SampleOptions struct {
	// MaxTokens is the maximum number of tokens to generate. Values <= 0 mean DefaultMaxTokens.
	MaxTokens int

	// Sampling strategy.
	Sampling SamplingType

	// Rand used for weighted sampling. If nil, the math/rand/v2 global source is used.
	Rand Rand
}

// DefaultSampleOptions returns DefaultMaxTokens with weighted sampling.
func DefaultSampleOptions() SampleOptions {
	return SampleOptions{MaxTokens: DefaultMaxTokens, Sampling: SampleWeighted}
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// WeightedPick returns the index selected by the uniform draw r in [0, 1) from the weights, which don't
// need to be normalized: the first index whose cumulative sum reaches r * sum(weights).
//
// Indices with zero weight are never picked, unless all weights are zero, in which case the last index is
// returned.
func WeightedPick(weights []float32, r float64) int {
	if len(weights) == 0 {
		return -1
	}
	cumsum := make([]float64, len(weights))
	var total float64
	for ii, w := range weights {
		total += float64(w)
		cumsum[ii] = total
	}
	draw := r * total
	last := len(weights) - 1
	for ii, t := range cumsum {
		if weights[ii] <= 0 {
			continue
		}
		if t >= draw {
			return ii
		}
		last = ii
	}
	return last
}

// argMaxIndex returns the index of the largest value, the first one on ties.
func argMaxIndex(values []float32) int {
	if len(values) == 0 {
		return -1
	}
	best := 0
	for ii, v := range values {
		if v > values[best] {
			best = ii
		}
	}
	return best
}

// Sample generates text from the model, starting from the start token and feeding each picked token back.
//
// It stops when the end token is picked (which is not included) or after opts.MaxTokens tokens.
// The tokens are returned joined by single spaces.
func (m *Model) Sample(session Session, v *vocab.Vocabulary, opts SampleOptions) (string, error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if !opts.Sampling.IsASamplingType() {
		return "", errors.Errorf("unknown sampling type %s", opts.Sampling)
	}
	rng := opts.Rand
	if rng == nil {
		rng = globalRand{}
	}
	endToken := m.EndToken()

	state := session.ZeroState()
	defer func() { FinalizeState(state) }()
	curTok := m.StartToken()
	generated := make([]string, 0, maxTokens)
	for range maxTokens {
		id, err := v.ID(curTok)
		if err != nil {
			return "", errors.WithMessage(err, "failed to sample")
		}
		probs, nextState, err := session.Step(id, state)
		if err != nil {
			return "", err
		}
		state = advanceState(state, nextState)

		var pick int
		switch opts.Sampling {
		case SampleArgmax:
			pick = argMaxIndex(probs)
		case SampleWeighted:
			pick = WeightedPick(probs, rng.Float64())
		case SampleWeightedOnSpace:
			if curTok == " " {
				pick = WeightedPick(probs, rng.Float64())
			} else {
				pick = argMaxIndex(probs)
			}
		}
		next, err := v.Token(pick)
		if err != nil {
			return "", errors.WithMessage(err, "model predicted a token id out of the vocabulary")
		}
		if next == endToken {
			break
		}
		generated = append(generated, next)
		curTok = next
	}
	klog.V(1).Infof("sampled %d tokens (%s)", len(generated), opts.Sampling)
	return strings.Join(generated, " "), nil
}
