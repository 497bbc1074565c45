// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package vocab holds the token vocabulary used by the language model: a bidirectional mapping between
// token strings and integer ids, always including the reserved start, end and unknown tokens.
//
// Building a vocabulary from a corpus is left to the caller: New takes the list of tokens, and Load reads
// a previously saved one.
package vocab

import (
	"github.com/pkg/errors"
)

// Reserved tokens, always present in a Vocabulary with the ids given by their position in Reserved.
const (
	StartToken   = "<START>"
	EndToken     = "<EOF>"
	UnknownToken = "<UNK>"
)

// Reserved lists the reserved tokens in id order.
var Reserved = []string{StartToken, EndToken, UnknownToken}

var (
	// ErrUnknownToken is returned when looking up a token not in the vocabulary.
	ErrUnknownToken = errors.New("unknown token")

	// ErrInvalidID is returned when looking up an id out of the vocabulary range.
	ErrInvalidID = errors.New("invalid token id")
)

// Vocabulary maps tokens to ids and back. It is immutable after creation and safe for concurrent reads.
type Vocabulary struct {
	tokens []string
	ids    map[string]int
}

// New creates a Vocabulary with the reserved tokens (ids 0, 1 and 2) followed by the given tokens in order.
// Duplicate tokens, including repeated reserved tokens, are ignored.
func New(tokens []string) *Vocabulary {
	v := &Vocabulary{
		tokens: make([]string, 0, len(Reserved)+len(tokens)),
		ids:    make(map[string]int, len(Reserved)+len(tokens)),
	}
	for _, token := range Reserved {
		v.add(token)
	}
	for _, token := range tokens {
		v.add(token)
	}
	return v
}

func (v *Vocabulary) add(token string) {
	if _, found := v.ids[token]; found {
		return
	}
	v.ids[token] = len(v.tokens)
	v.tokens = append(v.tokens, token)
}

// Size returns the number of tokens, including the reserved ones.
func (v *Vocabulary) Size() int {
	return len(v.tokens)
}

// Tokens returns a copy of all tokens in id order.
func (v *Vocabulary) Tokens() []string {
	return append([]string(nil), v.tokens...)
}

// ID returns the id of token, or an error wrapping ErrUnknownToken.
func (v *Vocabulary) ID(token string) (int, error) {
	id, found := v.ids[token]
	if !found {
		return 0, errors.Wrapf(ErrUnknownToken, "token %q", token)
	}
	return id, nil
}

// Token returns the token for id, or an error wrapping ErrInvalidID.
func (v *Vocabulary) Token(id int) (string, error) {
	if id < 0 || id >= len(v.tokens) {
		return "", errors.Wrapf(ErrInvalidID, "id %d not in vocabulary of size %d", id, len(v.tokens))
	}
	return v.tokens[id], nil
}

// Encode converts tokens to ids.
// If strict is false unknown tokens are mapped to UnknownToken, otherwise they are an error.
func (v *Vocabulary) Encode(tokens []string, strict bool) ([]int32, error) {
	unk := int32(v.ids[UnknownToken])
	ids := make([]int32, len(tokens))
	for ii, token := range tokens {
		id, found := v.ids[token]
		if !found {
			if strict {
				return nil, errors.Wrapf(ErrUnknownToken, "token %q at position %d", token, ii)
			}
			ids[ii] = unk
			continue
		}
		ids[ii] = int32(id)
	}
	return ids, nil
}

// Decode converts ids back to tokens.
func (v *Vocabulary) Decode(ids []int32) ([]string, error) {
	tokens := make([]string, len(ids))
	for ii, id := range ids {
		token, err := v.Token(int(id))
		if err != nil {
			return nil, err
		}
		tokens[ii] = token
	}
	return tokens, nil
}

// Boundaries returns the tokens that start and end a sequence.
// When sequences are processed in reverse order the two are swapped: a reversed sequence starts
// where the forward one ended.
func Boundaries(reverse bool) (start, end string) {
	if reverse {
		return EndToken, StartToken
	}
	return StartToken, EndToken
}
