package store

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type Putter interface {
	Put(ctx context.Context, rec *Record) error
}

type fixtures struct {
	Records []*Record `yaml:"records"`
}

// Seed reads a YAML fixture document with a top level `records` list and
// writes every record. It returns the number of records written.
func Seed(ctx context.Context, dst Putter, r io.Reader) (int, error) {
	var f fixtures
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if err == io.EOF {
			return 0, nil
		}
		return 0, fmt.Errorf("decode fixtures: %w", err)
	}

	written := 0
	for i, rec := range f.Records {
		if rec == nil {
			continue
		}
		if err := dst.Put(ctx, rec); err != nil {
			return written, fmt.Errorf("record %d: %w", i, err)
		}
		written++
	}
	return written, nil
}
