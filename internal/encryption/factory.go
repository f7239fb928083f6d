package encryption

import (
	"fmt"

	"savekeep/internal/config"
	"savekeep/internal/keep"
)

// NewSealerFromConfig creates a Sealer based on the configuration type.
func NewSealerFromConfig(cfg config.SealConfig) (keep.Sealer, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeSealer(cfg), nil
	case "test":
		return NewTestSealer(), nil
	default:
		return nil, fmt.Errorf("unknown seal type: %q", cfg.Type)
	}
}
