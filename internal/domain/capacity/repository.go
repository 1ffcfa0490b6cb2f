package capacity

import "context"

// Repository stores the singleton capacity config.
type Repository interface {
	// Get returns the stored config, or DefaultConfig when none exists.
	Get(ctx context.Context) (Config, error)

	// Save upserts the config.
	Save(ctx context.Context, cfg Config) error
}
