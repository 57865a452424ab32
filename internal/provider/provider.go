// Package provider holds the backlink acquisition sources. Each
// provider turns an audited domain into raw backlink candidates;
// merging, scoring and enrichment happen in the collector.
package provider

import (
	"context"

	"github.com/seolens/linkscope/internal/types"
)

// Provider is one acquisition source. Collect returns up to limit raw
// candidates; providers fail soft and return whatever they gathered
// alongside the error.
type Provider interface {
	Name() string
	Collect(ctx context.Context, target string, limit int) ([]types.Backlink, error)
}
