// Package collector runs load passes over configured sources and publishes new items.
package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/samvad-feed-loader/internal/feed"
	"github.com/samvad-hq/samvad-feed-loader/internal/logger"
	"github.com/samvad-hq/samvad-feed-loader/pkg/httpclient"
	"github.com/samvad-hq/samvad-feed-loader/pkg/publishers"
	"github.com/samvad-hq/samvad-feed-loader/pkg/sources"
)

// LoaderFactory builds the loader for one source. A new loader per pass keeps
// every pass a fresh request.
type LoaderFactory func(src sources.Source) feed.Loader

// EventPublisher publishes events downstream and reports how many sinks accepted them.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Deduper remembers which item ids were already published.
type Deduper interface {
	SeenItem(id string) (bool, error)
	MarkItem(id string) error
}

// RemoteLoaderFactory returns a LoaderFactory producing feed.RemoteLoaders on client.
func RemoteLoaderFactory(client httpclient.Client, log logger.Logger) LoaderFactory {
	log = logger.Ensure(log)
	return func(src sources.Source) feed.Loader {
		return feed.NewRemoteLoader(src.URL, client,
			feed.WithHeaders(src.RequestHeaders()),
			feed.WithLogger(log),
		)
	}
}

// Service coordinates load passes across multiple sources.
type Service struct {
	processor *SourceProcessor
	log       logger.Logger
}

// NewService wires a collector. A nil store disables deduplication.
func NewService(factory LoaderFactory, pub EventPublisher, log logger.Logger, store Deduper) *Service {
	log = logger.Ensure(log)
	return &Service{
		processor: NewSourceProcessor(factory, pub, log, store),
		log:       log,
	}
}

// Run executes one pass over srcs. Per-source failures are logged and joined.
func (s *Service) Run(ctx context.Context, srcs []sources.Source) error {
	if s == nil || s.processor == nil || s.processor.factory == nil {
		return fmt.Errorf("collector service is not initialized")
	}
	if len(srcs) == 0 {
		return fmt.Errorf("no sources configured")
	}

	if errs := s.runAll(ctx, srcs); len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func (s *Service) runAll(ctx context.Context, srcs []sources.Source) []error {
	errs := make([]error, 0, len(srcs))

	for i, src := range srcs {
		select {
		case <-ctx.Done():
			return errs
		default:
		}

		if err := s.processor.Process(ctx, src); err != nil {
			errs = append(errs, err)
			s.log.ErrorObj("source pass failed", "source_error", map[string]any{
				"source_id": src.ID,
				"kind":      errorKind(err),
				"error":     err.Error(),
			})
		}

		if i < len(srcs)-1 && !sleep(ctx, src.RequestDelay()) {
			return errs
		}
	}
	return errs
}

func errorKind(err error) string {
	if kind := feed.KindOf(err); kind != 0 {
		return kind.String()
	}
	return "publish"
}

// sleep waits for d or until ctx is done, reporting whether the full delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// SourceProcessor loads one source, drops already-published items and publishes the rest.
type SourceProcessor struct {
	factory LoaderFactory
	pub     EventPublisher
	log     logger.Logger
	store   Deduper
}

// NewSourceProcessor builds a processor; pub and store may be nil.
func NewSourceProcessor(factory LoaderFactory, pub EventPublisher, log logger.Logger, store Deduper) *SourceProcessor {
	return &SourceProcessor{
		factory: factory,
		pub:     pub,
		log:     logger.Ensure(log),
		store:   store,
	}
}

// Process performs a single load for src and publishes the items not seen before.
func (p *SourceProcessor) Process(ctx context.Context, src sources.Source) error {
	items, err := p.factory(src).Load(ctx)
	if err != nil {
		return fmt.Errorf("load source %s: %w", src.ID, err)
	}

	fresh := p.filterNewItems(src, items)

	var errs []error
	published := 0
	for _, item := range fresh {
		if p.pub == nil {
			break
		}
		evt := publishers.NewEvent(src.ID, src.Name, src.URL, item)
		n, err := p.pub.Publish(ctx, evt)
		if err != nil {
			errs = append(errs, fmt.Errorf("publish item %s: %w", item.ID(), err))
		}
		if n == 0 {
			continue
		}
		published++
		if p.store != nil {
			if err := p.store.MarkItem(item.ID().String()); err != nil {
				errs = append(errs, fmt.Errorf("mark item %s: %w", item.ID(), err))
			}
		}
	}

	p.log.InfoObj("source pass completed", "source_result", map[string]any{
		"source_id":       src.ID,
		"items_loaded":    len(items),
		"items_new":       len(fresh),
		"items_published": published,
	})
	return errors.Join(errs...)
}

// filterNewItems keeps items the store has not seen. Lookup failures keep the item.
func (p *SourceProcessor) filterNewItems(src sources.Source, items []feed.Item) []feed.Item {
	if p.store == nil {
		return items
	}
	out := make([]feed.Item, 0, len(items))
	for _, item := range items {
		seen, err := p.store.SeenItem(item.ID().String())
		if err != nil {
			p.log.WarnObj("seen-item lookup failed", "store_error", map[string]any{
				"source_id": src.ID,
				"item_id":   item.ID().String(),
				"error":     err.Error(),
			})
			out = append(out, item)
			continue
		}
		if !seen {
			out = append(out, item)
		}
	}
	return out
}
