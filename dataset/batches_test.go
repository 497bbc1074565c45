// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"io"
	"testing"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(n int) []int32 {
	ids := make([]int32, n)
	for ii := range ids {
		ids[ii] = int32(ii)
	}
	return ids
}

func TestNewBatches(t *testing.T) {
	_, err := NewBatches("tiny", seq(5), 2, 3, false)
	require.ErrorIs(t, err, ErrNotEnoughData)
	_, err = NewBatches("bad", seq(5), 0, 3, false)
	require.Error(t, err)

	// 14 ids, batch=2, seq=3: 2 batches, 12 ids kept.
	b, err := NewBatches("train", seq(14), 2, 3, false)
	require.NoError(t, err)
	assert.Equal(t, 2, b.NumBatches())
	assert.Equal(t, "train", b.Name())

	x, y := b.Batch(0)
	assert.Equal(t, [][]int32{{0, 1, 2}, {6, 7, 8}}, x)
	assert.Equal(t, [][]int32{{1, 2, 3}, {7, 8, 9}}, y)
	x, y = b.Batch(1)
	assert.Equal(t, [][]int32{{3, 4, 5}, {9, 10, 11}}, x)
	// Last target wraps around to the first id.
	assert.Equal(t, [][]int32{{4, 5, 6}, {10, 11, 0}}, y)
}

func TestReverse(t *testing.T) {
	b, err := NewBatches("reversed", seq(4), 1, 4, true)
	require.NoError(t, err)
	x, y := b.Batch(0)
	assert.Equal(t, [][]int32{{3, 2, 1, 0}}, x)
	assert.Equal(t, [][]int32{{2, 1, 0, 3}}, y)
}

func TestYield(t *testing.T) {
	b, err := NewBatches("train", seq(12), 2, 3, false)
	require.NoError(t, err)
	for range 2 {
		b.Reset()
		for batchIdx := range 2 {
			spec, inputs, labels, err := b.Yield()
			require.NoError(t, err)
			assert.Nil(t, spec)
			require.Len(t, inputs, 1)
			require.Len(t, labels, 2)
			assert.Equal(t, []int{2, 3}, inputs[0].Shape().Dimensions)
			assert.Equal(t, []int{2, 3, 1}, labels[0].Shape().Dimensions)
			assert.Equal(t, []int{2, 3}, labels[1].Shape().Dimensions)

			x, y := b.Batch(batchIdx)
			assert.Equal(t, append(x[0], x[1]...), tensors.MustCopyFlatData[int32](inputs[0]))
			assert.Equal(t, append(y[0], y[1]...), tensors.MustCopyFlatData[int32](labels[0]))
			assert.Equal(t, []float32{1, 1, 1, 1, 1, 1}, tensors.MustCopyFlatData[float32](labels[1]))
		}
		_, _, _, err = b.Yield()
		require.ErrorIs(t, err, io.EOF)
	}
}

func TestShuffle(t *testing.T) {
	b, err := NewBatches("train", seq(40), 1, 4, false)
	require.NoError(t, err)
	b.Shuffle(42)
	b.Reset()
	seen := make(map[int32]bool)
	for {
		_, inputs, _, err := b.Yield()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		first := tensors.MustCopyFlatData[int32](inputs[0])[0]
		assert.Zero(t, first%4)
		seen[first] = true
	}
	assert.Len(t, seen, 10)
}
