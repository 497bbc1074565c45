// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package rnnlm

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/charrnn/vocab"
)

// ErrSequenceTooShort is returned by Model.Evaluate for sequences with fewer than 2 tokens.
var ErrSequenceTooShort = errors.New("sequence must have at least 2 tokens")

// StepReport describes how the model predicted one token of an evaluated sequence.
type StepReport struct {
	// Token fed to the model, and NextToken the one it should predict.
	Token, NextToken string

	// Probability assigned to NextToken, and its self-information in bits.
	Probability, Entropy float64

	// Predicted is the most likely token according to the model.
	Predicted            string
	PredictedProbability float64
}

// Evaluation is the result of Model.Evaluate.
type Evaluation struct {
	// Probabilities assigned to each actual next token, except the last one: for a sequence of length L it
	// has L-2 values.
	Probabilities []float64

	// Steps has one report per adjacent pair of tokens: L-1 in total.
	Steps []StepReport

	// MeanEntropy is the average self-information, in bits, of all L-1 predictions.
	MeanEntropy float64
}

// Evaluate replays tokens through the model, starting from a zero state, and scores the probability the
// model assigns to each actual next token.
//
// It returns an error wrapping ErrSequenceTooShort if there are fewer than 2 tokens, or one wrapping
// vocab.ErrUnknownToken if a token is not in the vocabulary.
func (m *Model) Evaluate(session Session, v *vocab.Vocabulary, tokens []string) (*Evaluation, error) {
	if len(tokens) < 2 {
		return nil, errors.Wrapf(ErrSequenceTooShort, "got %d tokens", len(tokens))
	}
	eval := &Evaluation{
		Probabilities: make([]float64, 0, len(tokens)-1),
		Steps:         make([]StepReport, 0, len(tokens)-1),
	}
	state := session.ZeroState()
	defer func() { FinalizeState(state) }()
	var totalEntropy float64
	for n := range len(tokens) - 1 {
		token, nextToken := tokens[n], tokens[n+1]
		id, err := v.ID(token)
		if err != nil {
			return nil, errors.WithMessagef(err, "evaluating position %d", n)
		}
		nextID, err := v.ID(nextToken)
		if err != nil {
			return nil, errors.WithMessagef(err, "evaluating position %d", n+1)
		}
		probs, nextState, err := session.Step(id, state)
		if err != nil {
			return nil, err
		}
		state = advanceState(state, nextState)
		if nextID >= len(probs) {
			return nil, errors.Errorf("token %q has id %d, but the model only predicts %d tokens",
				nextToken, nextID, len(probs))
		}

		p := float64(probs[nextID])
		entropy := -math.Log2(p)
		totalEntropy += entropy
		best := argMaxIndex(probs)
		predicted, err := v.Token(best)
		if err != nil {
			return nil, errors.WithMessage(err, "model predicted a token id out of the vocabulary")
		}
		report := StepReport{
			Token:                token,
			NextToken:            nextToken,
			Probability:          p,
			Entropy:              entropy,
			Predicted:            predicted,
			PredictedProbability: float64(probs[best]),
		}
		klog.V(1).Infof("%q -> %q: entropy=%.3f bits, p=%.4f; predicted %q with p=%.4f",
			report.Token, report.NextToken, report.Entropy, report.Probability,
			report.Predicted, report.PredictedProbability)
		eval.Steps = append(eval.Steps, report)
		eval.Probabilities = append(eval.Probabilities, p)
	}
	eval.Probabilities = eval.Probabilities[:len(eval.Probabilities)-1]
	eval.MeanEntropy = totalEntropy / float64(len(tokens)-1)
	klog.Infof("mean entropy: %.4f bits/token over %d predictions", eval.MeanEntropy, len(eval.Steps))
	return eval, nil
}

var evalBoxStyle = lipgloss.NewStyle().
	Border(lipgloss.NormalBorder()).
	Padding(0, 2)

// Render returns a report of the evaluation, one table row per step.
func (e *Evaluation) Render() string {
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	headerStyle := lipgloss.NewStyle().Padding(0, 1).Bold(true).Reverse(true)
	table := lgtable.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == lgtable.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("Token", "Next", "Entropy", "P(next)", "Predicted", "P(predicted)")
	for _, step := range e.Steps {
		table.Row(
			quoteToken(step.Token),
			quoteToken(step.NextToken),
			fmt.Sprintf("%.3f", step.Entropy),
			fmt.Sprintf("%.4f", step.Probability),
			quoteToken(step.Predicted),
			fmt.Sprintf("%.4f", step.PredictedProbability))
	}
	var sb strings.Builder
	sb.WriteString(table.String())
	sb.WriteString(fmt.Sprintf("\nMean entropy: %.4f bits/token", e.MeanEntropy))
	return evalBoxStyle.Render(sb.String())
}

func quoteToken(token string) string {
	return fmt.Sprintf("%q", token)
}
