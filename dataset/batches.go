// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package dataset turns an already tokenized stream of ids into fixed-shape training batches for the
// language model, implementing train.Dataset.
//
// The stream is trimmed to a multiple of batchSize*seqLength and laid out in batchSize rows, each row a
// contiguous slice of the stream. Batch i takes the i-th window of seqLength ids from every row, so
// consecutive batches continue each other. Targets are the inputs shifted by one, with the very last
// target wrapping around to the first id of the stream.
package dataset

import (
	"io"
	"math/rand/v2"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrNotEnoughData is returned when the stream can't fill a single batch.
var ErrNotEnoughData = errors.New("not enough data for one batch")

// Batches is a train.Dataset over a tokenized id stream.
type Batches struct {
	name                           string
	batchSize, seqLength, numBatch int
	xs, ys                         []int32 // Trimmed inputs and shifted targets.

	order   []int
	next    int
	shuffle *rand.Rand
}

var _ train.Dataset = (*Batches)(nil)

// NewBatches creates the dataset from ids.
//
// If reverse is set the stream is reversed before batching, for models trained on reversed input.
func NewBatches(name string, ids []int32, batchSize, seqLength int, reverse bool) (*Batches, error) {
	if batchSize <= 0 || seqLength <= 0 {
		return nil, errors.Errorf("batchSize (%d) and seqLength (%d) must be > 0", batchSize, seqLength)
	}
	numBatches := len(ids) / (batchSize * seqLength)
	if numBatches == 0 {
		return nil, errors.Wrapf(ErrNotEnoughData, "%d ids for batchSize=%d and seqLength=%d",
			len(ids), batchSize, seqLength)
	}
	xs := slices.Clone(ids)
	if reverse {
		slices.Reverse(xs)
	}
	xs = xs[:numBatches*batchSize*seqLength]
	ys := make([]int32, len(xs))
	copy(ys, xs[1:])
	ys[len(ys)-1] = xs[0]

	b := &Batches{
		name:      name,
		batchSize: batchSize,
		seqLength: seqLength,
		numBatch:  numBatches,
		xs:        xs,
		ys:        ys,
	}
	b.order = make([]int, numBatches)
	for ii := range b.order {
		b.order[ii] = ii
	}
	klog.V(1).Infof("dataset %q: %d ids, %d batches of [%d, %d]", name, len(ids), numBatches, batchSize, seqLength)
	return b, nil
}

// Shuffle makes Reset permute the order of the batches, using the given seed.
// The current epoch is left untouched.
func (b *Batches) Shuffle(seed uint64) *Batches {
	b.shuffle = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return b
}

// NumBatches returns the number of batches per epoch.
func (b *Batches) NumBatches() int {
	return b.numBatch
}

// Batch returns the inputs and targets of batch i, each shaped [batchSize][seqLength].
func (b *Batches) Batch(i int) (x, y [][]int32) {
	rowLen := b.numBatch * b.seqLength
	x = make([][]int32, b.batchSize)
	y = make([][]int32, b.batchSize)
	for row := range b.batchSize {
		start := row*rowLen + i*b.seqLength
		x[row] = slices.Clone(b.xs[start : start+b.seqLength])
		y[row] = slices.Clone(b.ys[start : start+b.seqLength])
	}
	return
}

// Name implements train.Dataset.
func (b *Batches) Name() string {
	return b.name
}

// Reset implements train.Dataset.
func (b *Batches) Reset() {
	b.next = 0
	if b.shuffle != nil {
		b.shuffle.Shuffle(len(b.order), func(i, j int) {
			b.order[i], b.order[j] = b.order[j], b.order[i]
		})
	}
}

// Yield implements train.Dataset.
//
// The input is the int32 tensor of ids shaped [batchSize, seqLength]. Labels are the targets shaped
// [batchSize, seqLength, 1] followed by uniform float32 weights shaped [batchSize, seqLength].
func (b *Batches) Yield() (spec any, inputs, labels []*tensors.Tensor, err error) {
	if b.next >= b.numBatch {
		err = io.EOF
		return
	}
	x, y := b.Batch(b.order[b.next])
	b.next++
	inputs, labels = Tensors(x, y)
	return
}

// Tensors converts one batch to the inputs and labels tensors yielded by Batches.
func Tensors(x, y [][]int32) (inputs, labels []*tensors.Tensor) {
	batchSize := len(x)
	seqLength := 0
	if batchSize > 0 {
		seqLength = len(x[0])
	}
	flatX := make([]int32, 0, batchSize*seqLength)
	flatY := make([]int32, 0, batchSize*seqLength)
	for row := range batchSize {
		if len(x[row]) != seqLength || len(y[row]) != seqLength {
			exceptions.Panicf("ragged batch: row %d has %d inputs and %d targets, expected %d",
				row, len(x[row]), len(y[row]), seqLength)
		}
		flatX = append(flatX, x[row]...)
		flatY = append(flatY, y[row]...)
	}
	weights := make([]float32, batchSize*seqLength)
	for ii := range weights {
		weights[ii] = 1
	}
	inputs = []*tensors.Tensor{tensors.FromFlatDataAndDimensions(flatX, batchSize, seqLength)}
	labels = []*tensors.Tensor{
		tensors.FromFlatDataAndDimensions(flatY, batchSize, seqLength, 1),
		tensors.FromFlatDataAndDimensions(weights, batchSize, seqLength),
	}
	return
}
