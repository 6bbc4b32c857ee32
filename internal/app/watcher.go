package app

import (
	"context"
	"fmt"
	"time"

	"github.com/samvad-hq/samvad-feed-loader/internal/collector"
	"github.com/samvad-hq/samvad-feed-loader/internal/config"
	"github.com/samvad-hq/samvad-feed-loader/internal/logger"
	"github.com/samvad-hq/samvad-feed-loader/internal/storage"
	"github.com/samvad-hq/samvad-feed-loader/pkg/httpclient"
	"github.com/samvad-hq/samvad-feed-loader/pkg/publishers"
	"github.com/samvad-hq/samvad-feed-loader/pkg/sources"
)

// Watcher polls every configured source on a fixed interval, publishing items
// that were not published before.
type Watcher struct {
	cfg          *config.Config
	sources      []sources.Source
	fanout       *publishers.Fanout
	service      *collector.Service
	pollInterval time.Duration
	log          logger.Logger
	store        storage.Store
}

// NewWatcher builds a watcher runtime from config files.
func NewWatcher(ctx context.Context, cfg *config.Config, log logger.Logger) (*Watcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	srcs, err := ResolveSources(cfg)
	if err != nil {
		return nil, err
	}
	sourceIDs := make([]string, 0, len(srcs))
	for _, s := range srcs {
		sourceIDs = append(sourceIDs, s.ID)
	}
	log.InfoObj("sources loaded", "sources_meta", map[string]any{
		"count": len(sourceIDs),
		"ids":   sourceIDs,
	})

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := publisherReg.Enabled()
	if len(enabled) == 0 {
		return nil, fmt.Errorf("no publishers configured")
	}
	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	fanout := publishers.NewFanout(pubClients)

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{"id": pubCfg.ID, "type": pubCfg.Type})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		ItemTTL:         cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"item_ttl_seconds":         int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	client := NewHTTPClient(cfg)
	service := collector.NewService(collector.RemoteLoaderFactory(client, log), fanout, log, store)

	return &Watcher{
		cfg:          cfg,
		sources:      srcs,
		fanout:       fanout,
		service:      service,
		pollInterval: cfg.PollInterval,
		log:          log,
		store:        store,
	}, nil
}

// NewHTTPClient builds the production transport from config.
func NewHTTPClient(cfg *config.Config) httpclient.Client {
	return httpclient.NewRestyClient(httpclient.Options{
		Timeout:   cfg.HTTPTimeout,
		UserAgent: cfg.UserAgent,
	})
}

// ResolveSources returns the sources from the sources file, or a single source
// built from feed_url when that is set.
func ResolveSources(cfg *config.Config) ([]sources.Source, error) {
	if cfg.FeedURL != "" {
		reg, err := sources.NewRegistry(sources.Source{ID: "default", Name: "default", URL: cfg.FeedURL})
		if err != nil {
			return nil, fmt.Errorf("feed_url: %w", err)
		}
		return reg.All(), nil
	}
	reg, err := sources.LoadRegistry(cfg.SourcesFile)
	if err != nil {
		return nil, fmt.Errorf("load sources registry: %w", err)
	}
	return reg.All(), nil
}

// Run starts the poll loop until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w == nil || w.service == nil {
		return fmt.Errorf("watcher is not initialized")
	}
	defer w.close()

	w.log.InfoObj("watcher loop starting", "watcher_state", map[string]any{
		"sources_count":    len(w.sources),
		"publishers_count": w.fanout.Size(),
		"poll_interval":    w.pollInterval.String(),
	})

	if err := w.runOnce(ctx); err != nil {
		w.log.ErrorObj("initial pass failed", "error", err.Error())
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.InfoObj("watcher loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if err := w.runOnce(ctx); err != nil {
				w.log.ErrorObj("scheduled pass failed", "error", err.Error())
			}
		}
	}
}

func (w *Watcher) runOnce(ctx context.Context) error {
	start := time.Now()
	w.log.InfoObj("pass started", "pass_meta", map[string]any{
		"sources_count": len(w.sources),
		"started_at":    start.UTC(),
	})
	if err := w.service.Run(ctx, w.sources); err != nil {
		return err
	}
	w.log.InfoObj("pass completed", "pass_meta", map[string]any{
		"sources_count": len(w.sources),
		"elapsed_ms":    time.Since(start).Milliseconds(),
	})
	return nil
}

func (w *Watcher) close() {
	if w.store != nil {
		if err := w.store.Close(); err != nil {
			w.log.ErrorObj("storage close failed", "error", err.Error())
		}
	}
	if err := w.fanout.Close(); err != nil {
		w.log.ErrorObj("publishers close failed", "error", err.Error())
	}
}
