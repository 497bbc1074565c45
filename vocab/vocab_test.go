// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package vocab

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	v := New([]string{"a", "b", "a", UnknownToken, " "})
	assert.Equal(t, []string{StartToken, EndToken, UnknownToken, "a", "b", " "}, v.Tokens())
	assert.Equal(t, 6, v.Size())

	id, err := v.ID("b")
	require.NoError(t, err)
	assert.Equal(t, 4, id)
	token, err := v.Token(5)
	require.NoError(t, err)
	assert.Equal(t, " ", token)

	_, err = v.ID("zz")
	require.ErrorIs(t, err, ErrUnknownToken)
	_, err = v.Token(6)
	require.ErrorIs(t, err, ErrInvalidID)
	_, err = v.Token(-1)
	require.ErrorIs(t, err, ErrInvalidID)
}

func TestEncodeDecode(t *testing.T) {
	v := New([]string{"x", "y"})
	ids, err := v.Encode([]string{"y", "q", "x"}, false)
	require.NoError(t, err)
	assert.Equal(t, []int32{4, 2, 3}, ids)

	_, err = v.Encode([]string{"y", "q"}, true)
	require.ErrorIs(t, err, ErrUnknownToken)

	tokens, err := v.Decode([]int32{3, 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", EndToken}, tokens)
	_, err = v.Decode([]int32{9})
	require.ErrorIs(t, err, ErrInvalidID)
}

func TestBoundaries(t *testing.T) {
	start, end := Boundaries(false)
	assert.Equal(t, StartToken, start)
	assert.Equal(t, EndToken, end)
	start, end = Boundaries(true)
	assert.Equal(t, EndToken, start)
	assert.Equal(t, StartToken, end)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.json")
	v := New([]string{"hello", "world"})
	require.NoError(t, v.Save(path))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, v.Tokens(), loaded.Tokens())

	// Files without reserved tokens get them prepended.
	require.NoError(t, os.WriteFile(path, []byte(`{"tokens": ["a"]}`), 0o644))
	loaded, err = Load(path)
	require.NoError(t, err)
	id, err := loaded.ID("a")
	require.NoError(t, err)
	assert.Equal(t, 3, id)

	require.NoError(t, os.WriteFile(path, []byte(`{"tokens": [`), 0o644))
	_, err = Load(path)
	require.Error(t, err)
	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
