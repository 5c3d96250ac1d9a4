package assets

import (
	"context"

	"go.uber.org/zap"
)

// Store uploads staged files and removes hosted assets.
type Store interface {
	Upload(ctx context.Context, localPath string) (*Asset, error)
	Destroy(ctx context.Context, asset *Asset) error
}

type destroyQueue interface {
	Submit(asset *Asset) error
}

// DeferredDestroyer hands deletions to a background queue so request paths
// do not wait on the asset host. Uploads pass straight through.
type DeferredDestroyer struct {
	store  Store
	queue  destroyQueue
	logger *zap.Logger
}

// WithDeferredDestroy wraps store so Destroy is queued.
func WithDeferredDestroy(store Store, queue destroyQueue, logger *zap.Logger) *DeferredDestroyer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeferredDestroyer{store: store, queue: queue, logger: logger}
}

// Upload delegates to the wrapped store.
func (d *DeferredDestroyer) Upload(ctx context.Context, localPath string) (*Asset, error) {
	return d.store.Upload(ctx, localPath)
}

// Destroy queues the deletion, falling back to a synchronous call when the
// queue refuses it.
func (d *DeferredDestroyer) Destroy(ctx context.Context, asset *Asset) error {
	if asset == nil || asset.PublicID == "" {
		return nil
	}
	if err := d.queue.Submit(asset); err != nil {
		d.logger.Warn("destroy queue unavailable, deleting inline", zap.String("public_id", asset.PublicID), zap.Error(err))
		return d.store.Destroy(ctx, asset)
	}
	return nil
}
