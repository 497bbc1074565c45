// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package rnnlm

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
)

// GlobalNormGraph returns sqrt(Σ‖g‖²) over all the gradients, a scalar.
func GlobalNormGraph(grads []*Node) *Node {
	var sumSquares *Node
	for _, grad := range grads {
		s := ReduceAllSum(Square(grad))
		if sumSquares == nil {
			sumSquares = s
		} else {
			sumSquares = Add(sumSquares, s)
		}
	}
	return Sqrt(sumSquares)
}

// ClipByGlobalNorm rescales the gradients so that their global norm (see GlobalNormGraph) is at most clipNorm:
// each gradient is multiplied by clipNorm / max(globalNorm, clipNorm).
//
// If clipNorm <= 0 the gradients are returned unchanged.
func ClipByGlobalNorm(grads []*Node, clipNorm float64) []*Node {
	if clipNorm <= 0 || len(grads) == 0 {
		return grads
	}
	globalNorm := GlobalNormGraph(grads)
	clip := ConstAs(globalNorm, clipNorm)
	scale := Div(clip, Max(globalNorm, clip))
	clipped := make([]*Node, len(grads))
	for ii, grad := range grads {
		clipped[ii] = Mul(grad, ConvertDType(scale, grad.DType()))
	}
	return clipped
}

// gradientsOptimizer is implemented by GoMLX optimizers that can apply pre-computed gradients.
type gradientsOptimizer interface {
	UpdateGraphWithGradients(ctx *context.Context, grads []*Node, lossDType dtypes.DType)
}

// clippedAdam clips the gradients by their global norm before handing them to Adam.
type clippedAdam struct {
	clipNorm float64
	adam     optimizers.Interface
}

var _ optimizers.Interface = (*clippedAdam)(nil)

// ClippedAdam returns an Adam optimizer that first clips the gradients by their global norm to clipNorm.
//
// The learning rate is read from the context learning rate variable (see Model.SetLearningRate),
// which starts at zero.
func ClippedAdam(clipNorm float64) optimizers.Interface {
	return &clippedAdam{
		clipNorm: clipNorm,
		adam:     optimizers.Adam().LearningRate(0).Epsilon(1e-8).Done(),
	}
}

// UpdateGraph implements optimizers.Interface.
func (o *clippedAdam) UpdateGraph(ctx *context.Context, g *Graph, loss *Node) {
	if !loss.Shape().IsScalar() {
		exceptions.Panicf("optimizer requires a scalar loss to optimize, got loss.shape=%s instead", loss.Shape())
	}
	withGrads, ok := o.adam.(gradientsOptimizer)
	if !ok {
		exceptions.Panicf("optimizer %T can't apply pre-computed gradients", o.adam)
	}
	grads := ctx.BuildTrainableVariablesGradientsGraph(loss)
	withGrads.UpdateGraphWithGradients(ctx, ClipByGlobalNorm(grads, o.clipNorm), loss.DType())
}

// Clear implements optimizers.Interface.
func (o *clippedAdam) Clear(ctx *context.Context) error {
	return o.adam.Clear(ctx)
}
