// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package rnnlm

import (
	"math"

	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/context/checkpoints"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/gomlx/gomlx/ui/commandline"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/charrnn/dataset"
)

// Trainer trains a Model with the sequence loss and ClippedAdam, using GoMLX's train.Trainer and train.Loop.
type Trainer struct {
	model   *Model
	trainer *train.Trainer
	loop    *train.Loop

	checkpoint    *checkpoints.Handler
	lastSavedStep int64
}

// NewTrainer creates a Trainer for a training (not inference) model.
func NewTrainer(backend backends.Backend, model *Model) (*Trainer, error) {
	if model.infer {
		return nil, errors.New("can't train an inference model, create it with infer=false")
	}
	t := &Trainer{model: model, lastSavedStep: -1}
	t.trainer = train.NewTrainer(backend, model.ctx, model.ModelGraph,
		LossGraph,
		ClippedAdam(model.cfg.GradClip),
		nil, nil) // Loss is the only metric.
	t.loop = train.NewLoop(t.trainer)
	return t, nil
}

// Model being trained.
func (t *Trainer) Model() *Model { return t.model }

// Loop used by Train, where extra hooks can be attached.
func (t *Trainer) Loop() *train.Loop { return t.loop }

// WithProgressBar attaches a command line progress bar to the training loop.
func (t *Trainer) WithProgressBar() *Trainer {
	commandline.AttachProgressBar(t.loop)
	return t
}

// WithCheckpoint saves checkpoints to dir every Config.SaveEvery steps and at the end of training, keeping
// the last Config.NumCheckpoints. If dir already has checkpoints, they are loaded and training continues
// from there.
func (t *Trainer) WithCheckpoint(dir string) error {
	cfg := t.model.cfg
	handler, err := checkpoints.Build(t.model.ctx).
		Dir(dir).
		Keep(max(cfg.NumCheckpoints, 1)).
		Done()
	if err != nil {
		return errors.WithMessagef(err, "failed to configure checkpoints in %q", dir)
	}
	t.checkpoint = handler
	if cfg.SaveEvery > 0 {
		train.EveryNSteps(t.loop, cfg.SaveEvery, "checkpoint", 100,
			func(_ *train.Loop, _ []*tensors.Tensor) error {
				return t.saveCheckpoint()
			})
	}
	klog.Infof("checkpoints in %q (global step %d)", handler.Dir(), optimizers.GetGlobalStep(t.model.ctx))
	return nil
}

// TrainStep runs one gradient step on the batch of inputs x and targets y, both [batchSize][seqLength],
// with the current learning rate. It returns the loss before the update.
func (t *Trainer) TrainStep(x, y [][]int32) (float32, error) {
	inputs, labels := dataset.Tensors(x, y)
	metrics, err := t.trainer.TrainStep(nil, inputs, labels)
	if err != nil {
		return 0, errors.WithMessage(err, "training step failed")
	}
	loss := tensors.ToScalar[float32](metrics[0])
	for _, metric := range metrics {
		metric.FinalizeAll()
	}
	return loss, nil
}

// Train runs numEpochs epochs over ds. Before epoch e the learning rate is set to
// Config.LearningRate * Config.DecayRate^e.
//
// It returns the loss of the last training step.
func (t *Trainer) Train(ds train.Dataset, numEpochs int) (float32, error) {
	cfg := t.model.cfg
	var lastLoss float32
	for epoch := range numEpochs {
		lr := cfg.LearningRate * math.Pow(cfg.DecayRate, float64(epoch))
		if err := t.model.SetLearningRate(lr); err != nil {
			return lastLoss, err
		}
		metrics, err := t.loop.RunEpochs(ds, 1)
		if err != nil {
			return lastLoss, errors.WithMessagef(err, "epoch %d failed", epoch)
		}
		if len(metrics) > 0 {
			lastLoss = tensors.ToScalar[float32](metrics[0])
		}
		klog.Infof("epoch %d/%d: learning_rate=%.6g, loss=%.4f, global_step=%d",
			epoch+1, numEpochs, lr, lastLoss, optimizers.GetGlobalStep(t.model.ctx))
	}
	if t.checkpoint != nil {
		if err := t.saveCheckpoint(); err != nil {
			return lastLoss, errors.WithMessage(err, "failed to save final checkpoint")
		}
	}
	return lastLoss, nil
}

// saveCheckpoint saves a checkpoint, unless one was already saved at the current global step.
func (t *Trainer) saveCheckpoint() error {
	step := optimizers.GetGlobalStep(t.model.ctx)
	if step == t.lastSavedStep {
		return nil
	}
	if err := t.checkpoint.Save(); err != nil {
		return err
	}
	t.lastSavedStep = step
	return nil
}

// Restore creates a model from the checkpoint in dir: the configuration comes from the saved parameters, and
// the variables are loaded as they are used.
func Restore(dir string, reverseInput, infer bool) (*Model, error) {
	ctx := context.New()
	if _, err := checkpoints.Load(ctx).Dir(dir).Done(); err != nil {
		return nil, errors.WithMessagef(err, "failed to load checkpoint from %q", dir)
	}
	cfg, err := ConfigFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return NewWithContext(ctx, cfg, reverseInput, infer)
}
