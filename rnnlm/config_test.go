// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package rnnlm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestCellType(t *testing.T) {
	for name, want := range map[string]CellType{"rnn": CellRNN, "gru": CellGRU, "lstm": CellLSTM} {
		got, err := ParseCellType(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, name, got.String())
	}
	_, err := ParseCellType("transformer")
	require.ErrorIs(t, err, ErrUnsupportedModel)
	assert.False(t, CellType(7).IsACellType())
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig, "VocabSize is not set by DefaultConfig")
	cfg.VocabSize = 65
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.NumLayers = 0
	require.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = cfg
	bad.GradClip = -1
	require.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = cfg
	bad.Model = CellType(7)
	require.ErrorIs(t, bad.Validate(), ErrUnsupportedModel)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: gru\nrnn_size: 64\nvocab_size: 30\ngrad_clip: 1.5\n"), 0o644))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, CellGRU, cfg.Model)
	assert.Equal(t, 64, cfg.RNNSize)
	assert.Equal(t, 30, cfg.VocabSize)
	assert.Equal(t, 1.5, cfg.GradClip)
	assert.Equal(t, DefaultConfig().NumLayers, cfg.NumLayers, "missing fields keep their defaults")

	// Marshaling writes the cell type by name.
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(data), "model: gru")

	require.NoError(t, os.WriteFile(path, []byte("model: cnn\n"), 0o644))
	_, err = LoadConfig(path)
	require.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestConfigParams(t *testing.T) {
	cfg := testConfig(17)
	cfg.Model = CellRNN
	ctx := context.New()
	cfg.SetParams(ctx)
	got, err := ConfigFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	// Missing parameters take the default values.
	got, err = ConfigFromContext(context.New())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), got)
}

func TestApplySettings(t *testing.T) {
	cfg := testConfig(17)
	updated, paramsSet, err := cfg.ApplySettings("model=gru;rnn_size=32;learning_rate=0.01")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{ParamModel, ParamRNNSize, ParamLearningRate}, paramsSet)
	assert.Equal(t, CellGRU, updated.Model)
	assert.Equal(t, 32, updated.RNNSize)
	assert.Equal(t, 0.01, updated.LearningRate)
	assert.Equal(t, cfg.VocabSize, updated.VocabSize)

	_, _, err = cfg.ApplySettings("model=cnn")
	require.ErrorIs(t, err, ErrUnsupportedModel)
}
