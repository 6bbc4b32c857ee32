package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/samvad-feed-loader/internal/app"
	"github.com/samvad-hq/samvad-feed-loader/internal/config"
	"github.com/samvad-hq/samvad-feed-loader/internal/feed"
	"github.com/samvad-hq/samvad-feed-loader/internal/logger"
	"github.com/samvad-hq/samvad-feed-loader/pkg/sources"
)

type loadOptions struct {
	url      string
	sourceID string
	format   string
}

func newLoadCmd(root *rootOptions) *cobra.Command {
	opts := &loadOptions{}

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load a feed once and print its items",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFrom(root.envFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := logger.Init(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logger.Close()

			target, headers, err := resolveTarget(cfg, opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			loader := feed.NewRemoteLoader(target, app.NewHTTPClient(cfg),
				feed.WithHeaders(headers),
				feed.WithLogger(log),
			)
			log.DebugObj("loading feed", "feed_url", loader.URL())
			return runLoad(ctx, loader, opts.format, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "feed URL (defaults to FEED_URL)")
	cmd.Flags().StringVar(&opts.sourceID, "source", "", "source id from the sources file")
	cmd.Flags().StringVar(&opts.format, "format", "json", "output format: json or yaml")
	return cmd
}

func resolveTarget(cfg *config.Config, opts *loadOptions) (string, map[string]string, error) {
	switch {
	case opts.url != "":
		return opts.url, nil, nil
	case opts.sourceID != "":
		reg, err := sources.LoadRegistry(cfg.SourcesFile)
		if err != nil {
			return "", nil, fmt.Errorf("load sources registry: %w", err)
		}
		src, ok := reg.ByID(opts.sourceID)
		if !ok {
			return "", nil, fmt.Errorf("unknown source %q", opts.sourceID)
		}
		return src.URL, src.RequestHeaders(), nil
	case cfg.FeedURL != "":
		return cfg.FeedURL, nil, nil
	default:
		return "", nil, fmt.Errorf("no feed url: pass --url, --source or set FEED_URL")
	}
}

// runLoad performs one load and writes the items; failures are reported by kind only.
func runLoad(ctx context.Context, loader feed.Loader, format string, out io.Writer) error {
	res := <-feed.LoadAsync(ctx, loader)
	if res.Err != nil {
		return fmt.Errorf("load failed: %s", feed.KindOf(res.Err))
	}
	return writeItems(out, format, res.Items)
}

func writeItems(out io.Writer, format string, items []feed.Item) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"items": items})
	case "yaml":
		// Round-trip through the JSON wire shape so yaml sees plain maps.
		raw, err := json.Marshal(map[string]any{"items": items})
		if err != nil {
			return err
		}
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		enc := yaml.NewEncoder(out)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}
