package cleaner

import (
	"context"
	"fmt"

	"fhvclean/internal/config"
	"fhvclean/internal/storage"
)

// newRepositoryFn is a test seam over storage.New.
var newRepositoryFn = storage.New

// Open connects the repositories named by p and returns a Cleaner over them
// plus a function closing them. Source and destination share one repository
// when they name the same backend and DSN.
func Open(ctx context.Context, p config.Pipeline, opts ...Option) (*Cleaner, func(), error) {
	src, err := newRepositoryFn(ctx, storageConfig(p.Source, p.Runtime.BatchSize))
	if err != nil {
		return nil, nil, fmt.Errorf("open source %s: %w", p.Source.Kind, err)
	}
	if p.SharedStorage() {
		return New(src, src, FromPipeline(p), opts...), src.Close, nil
	}

	dst, err := newRepositoryFn(ctx, storageConfig(p.ResolvedDestination(), p.Runtime.BatchSize))
	if err != nil {
		src.Close()
		return nil, nil, fmt.Errorf("open destination %s: %w", p.ResolvedDestination().Kind, err)
	}
	closeFn := func() {
		dst.Close()
		src.Close()
	}
	return New(src, dst, FromPipeline(p), opts...), closeFn, nil
}

// storageConfig maps a table endpoint onto storage.Config. A per-table
// options.batch_size overrides the runtime default.
func storageConfig(t config.Table, batchSize int) storage.Config {
	return storage.Config{
		Kind:      t.Kind,
		DSN:       t.DSN,
		BatchSize: t.Options.Int("batch_size", batchSize),
	}
}
