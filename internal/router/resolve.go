package router

import (
	"errors"

	"github.com/af-corp/aegis-modelplan/internal/types"
)

// ErrNoHealthyModel is returned when every provider in a chain is open.
var ErrNoHealthyModel = errors.New("no healthy model in chain")

// Resolution is the outcome of walking a chain.
type Resolution struct {
	Model   string   `json:"model"`
	Skipped []string `json:"skipped,omitempty"`
}

// Resolver picks the first usable model of a chain.
type Resolver struct {
	health *HealthTracker
}

func NewResolver(health *HealthTracker) *Resolver {
	return &Resolver{health: health}
}

// Resolve returns the first model whose provider circuit allows traffic.
// Identifiers without a provider prefix are always usable.
func (r *Resolver) Resolve(chain []string) (Resolution, error) {
	var res Resolution
	for _, id := range chain {
		provider, _, ok := types.SplitModelID(id)
		if !ok || r.health.Allow(provider) {
			res.Model = id
			return res, nil
		}
		res.Skipped = append(res.Skipped, id)
	}
	return res, ErrNoHealthyModel
}
