// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embed maps text to unit-norm vectors via a remote embedding
// service. The service is a black box; everything downstream only assumes
// fixed-dimension vectors with unit L2 norm.
package embed

import (
	"context"
	"fmt"

	"github.com/hupe1980/vecgo/distance"
)

// Provider maps a batch of texts to one embedding per text, in input
// order. Implementations must return unit-norm vectors of a single fixed
// dimension. Batched by contract: callers issue one call per logical
// batch, never one call per text.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedOne embeds a single text through the batched interface.
func EmbedOne(ctx context.Context, p Provider, text string) ([]float32, error) {
	vecs, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedding provider returned %d vectors for 1 text", len(vecs))
	}
	return vecs[0], nil
}

// normalize enforces the unit-norm invariant on a batch of raw vectors.
// A zero vector cannot be normalized and is an error, not silently kept.
func normalize(vecs [][]float32) error {
	for i, v := range vecs {
		if len(v) == 0 {
			return fmt.Errorf("embedding %d is empty", i)
		}
		if !distance.NormalizeL2InPlace(v) {
			return fmt.Errorf("embedding %d has zero norm", i)
		}
	}
	return nil
}
