// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package rnnlm

import (
	"os"

	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/gomlx/gomlx/ui/commandline"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// CellType selects the recurrent cell used in every layer of the model.
//
//go:generate go tool enumer -type=CellType -trimprefix=Cell -transform=snake -text -json -yaml -output=gen_celltype_enumer.go
type CellType int

const (
	CellRNN CellType = iota
	CellGRU
	CellLSTM
)

var (
	// ErrUnsupportedModel is returned when the configured cell type is not one of the CellType values.
	ErrUnsupportedModel = errors.New("model type not supported")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ParseCellType converts a name ("rnn", "gru" or "lstm") to a CellType.
func ParseCellType(name string) (CellType, error) {
	cellType, err := CellTypeString(name)
	if err != nil {
		return 0, errors.Wrapf(ErrUnsupportedModel, "%q", name)
	}
	return cellType, nil
}

// Context parameters mirroring the Config fields.
const (
	ParamModel          = "model"
	ParamRNNSize        = "rnn_size"
	ParamNumLayers      = "num_layers"
	ParamVocabSize      = "vocab_size"
	ParamBatchSize      = "batch_size"
	ParamSeqLength      = "seq_length"
	ParamGradClip       = "grad_clip"
	ParamDecayRate      = "decay_rate"
	ParamNumEpochs      = "num_epochs"
	ParamSaveEvery      = "save_every"
	ParamNumCheckpoints = "num_checkpoints"
	ParamSeed           = "seed"
)

// ParamLearningRate is the context parameter for Config.LearningRate, shared with the optimizers package.
var ParamLearningRate = optimizers.ParamLearningRate

// Config holds the model hyperparameters, plus the ones used by the Trainer.
type Config struct {
	Model     CellType `yaml:"model"`
	RNNSize   int      `yaml:"rnn_size"`
	NumLayers int      `yaml:"num_layers"`
	VocabSize int      `yaml:"vocab_size"`
	BatchSize int      `yaml:"batch_size"`
	SeqLength int      `yaml:"seq_length"`

	// GradClip is the maximum global norm of the gradients. 0 disables clipping.
	GradClip float64 `yaml:"grad_clip"`

	LearningRate   float64 `yaml:"learning_rate"`
	DecayRate      float64 `yaml:"decay_rate"`
	NumEpochs      int     `yaml:"num_epochs"`
	SaveEvery      int     `yaml:"save_every"`
	NumCheckpoints int     `yaml:"num_checkpoints"`
	Seed           int64   `yaml:"seed"`
}

// DefaultConfig returns the default hyperparameters. VocabSize is left 0 and must be set from
// the vocabulary.
func DefaultConfig() Config {
	return Config{
		Model:          CellLSTM,
		RNNSize:        128,
		NumLayers:      2,
		BatchSize:      50,
		SeqLength:      50,
		GradClip:       5.0,
		LearningRate:   0.002,
		DecayRate:      0.97,
		NumEpochs:      50,
		SaveEvery:      1000,
		NumCheckpoints: 3,
	}
}

// Validate checks the sizes are positive and the cell type is known.
func (c Config) Validate() error {
	if !c.Model.IsACellType() {
		return errors.Wrapf(ErrUnsupportedModel, "%s", c.Model)
	}
	for _, field := range []struct {
		name  string
		value int
	}{
		{ParamRNNSize, c.RNNSize},
		{ParamNumLayers, c.NumLayers},
		{ParamVocabSize, c.VocabSize},
		{ParamBatchSize, c.BatchSize},
		{ParamSeqLength, c.SeqLength},
	} {
		if field.value <= 0 {
			return errors.Wrapf(ErrInvalidConfig, "%s must be > 0, got %d", field.name, field.value)
		}
	}
	if c.GradClip < 0 {
		return errors.Wrapf(ErrInvalidConfig, "%s must be >= 0, got %g", ParamGradClip, c.GradClip)
	}
	return nil
}

// LoadConfig reads a YAML file with the hyperparameters. Fields not in the file keep the values
// of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "failed to read configuration from %q", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse configuration in %q", path)
	}
	return cfg, nil
}

// SetParams stores the configuration as context parameters, so they are saved along the checkpoints.
func (c Config) SetParams(ctx *context.Context) {
	ctx.SetParams(map[string]any{
		ParamModel:          c.Model.String(),
		ParamRNNSize:        c.RNNSize,
		ParamNumLayers:      c.NumLayers,
		ParamVocabSize:      c.VocabSize,
		ParamBatchSize:      c.BatchSize,
		ParamSeqLength:      c.SeqLength,
		ParamGradClip:       c.GradClip,
		ParamLearningRate:   c.LearningRate,
		ParamDecayRate:      c.DecayRate,
		ParamNumEpochs:      c.NumEpochs,
		ParamSaveEvery:      c.SaveEvery,
		ParamNumCheckpoints: c.NumCheckpoints,
		ParamSeed:           c.Seed,
	})
}

// ConfigFromContext reads the configuration back from the context parameters, using DefaultConfig
// for the missing ones.
func ConfigFromContext(ctx *context.Context) (Config, error) {
	d := DefaultConfig()
	cellType, err := ParseCellType(context.GetParamOr(ctx, ParamModel, d.Model.String()))
	if err != nil {
		return d, err
	}
	return Config{
		Model:          cellType,
		RNNSize:        context.GetParamOr(ctx, ParamRNNSize, d.RNNSize),
		NumLayers:      context.GetParamOr(ctx, ParamNumLayers, d.NumLayers),
		VocabSize:      context.GetParamOr(ctx, ParamVocabSize, d.VocabSize),
		BatchSize:      context.GetParamOr(ctx, ParamBatchSize, d.BatchSize),
		SeqLength:      context.GetParamOr(ctx, ParamSeqLength, d.SeqLength),
		GradClip:       context.GetParamOr(ctx, ParamGradClip, d.GradClip),
		LearningRate:   context.GetParamOr(ctx, ParamLearningRate, d.LearningRate),
		DecayRate:      context.GetParamOr(ctx, ParamDecayRate, d.DecayRate),
		NumEpochs:      context.GetParamOr(ctx, ParamNumEpochs, d.NumEpochs),
		SaveEvery:      context.GetParamOr(ctx, ParamSaveEvery, d.SaveEvery),
		NumCheckpoints: context.GetParamOr(ctx, ParamNumCheckpoints, d.NumCheckpoints),
		Seed:           context.GetParamOr(ctx, ParamSeed, d.Seed),
	}, nil
}

// ApplySettings overrides configuration values with a "key=value;key=value" settings string, the
// format used by GoMLX's command line tools. It returns the updated configuration and the keys set.
func (c Config) ApplySettings(settings string) (Config, []string, error) {
	ctx := context.New()
	c.SetParams(ctx)
	paramsSet, err := commandline.ParseContextSettings(ctx, settings)
	if err != nil {
		return c, nil, errors.WithMessagef(err, "failed to parse settings %q", settings)
	}
	updated, err := ConfigFromContext(ctx)
	if err != nil {
		return c, nil, err
	}
	return updated, paramsSet, nil
}
