// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package vocab

import (
	"os"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// fileFormat is the on-disk JSON representation of a Vocabulary.
type fileFormat struct {
	Tokens []string `json:"tokens"`
}

// Load reads a vocabulary saved with Save.
// Reserved tokens missing from the file are added, so ids of a file without them are shifted.
func Load(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read vocabulary from %q", path)
	}
	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrapf(err, "failed to parse vocabulary in %q", path)
	}
	return New(f.Tokens), nil
}

// Save writes the vocabulary to path as JSON, reserved tokens included.
func (v *Vocabulary) Save(path string) error {
	data, err := json.MarshalIndent(fileFormat{Tokens: v.tokens}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode vocabulary")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write vocabulary to %q", path)
	}
	return nil
}
