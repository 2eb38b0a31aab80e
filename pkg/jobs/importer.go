package jobs

import (
	"context"
	"errors"

	"github.com/passssat/fleet-registry/pkg/seed"
)

// SeedImporter applies seed documents, the same YAML the seed command loads.
type SeedImporter struct {
	Loader *seed.Loader
}

// Import parses document and applies it. Entities created before a rejected
// entry are kept and counted.
func (s SeedImporter) Import(ctx context.Context, document []byte) (int, error) {
	f, err := seed.Parse(document)
	if err != nil {
		return 0, Permanent(err)
	}
	res, err := s.Loader.Apply(ctx, f)
	if errors.Is(err, seed.ErrInvalid) {
		err = Permanent(err)
	}
	return res.Created(), err
}
