package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/helixir/inspire-rss-service/internal/config"
	"github.com/helixir/inspire-rss-service/internal/domain"
	"github.com/helixir/inspire-rss-service/internal/feed"
	"github.com/helixir/inspire-rss-service/internal/observability"
	"github.com/helixir/inspire-rss-service/internal/papersources"
	"github.com/helixir/inspire-rss-service/internal/papersources/inspire"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Fetch one result page and print it as RSS",
	Long: `Render forwards every --param to the literature API exactly as the server
forwards query parameters, then prints the RSS document.

  feedctl render --param q="a E.Witten" --param sort=mostrecent --param size=10`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringArray("param", nil, "query parameter as key=value (repeatable)")
	renderCmd.Flags().String("base-url", "", "override upstream.base_url")
	renderCmd.Flags().Duration("timeout", 0, "override upstream.timeout")
	renderCmd.Flags().String("log-level", "warn", "log level for diagnostics on stderr")

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, _ []string) error {
	rawParams, _ := cmd.Flags().GetStringArray("param")
	baseURL, _ := cmd.Flags().GetString("base-url")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	logLevel, _ := cmd.Flags().GetString("log-level")

	params, err := parseParams(rawParams)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if baseURL != "" {
		cfg.Upstream.BaseURL = baseURL
	}
	if timeout > 0 {
		cfg.Upstream.Timeout = timeout
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:  logLevel,
		Format: "console",
		Output: "stderr",
	})

	return render(cmd.Context(), cfg, params, logger, cmd.OutOrStdout())
}

// render runs the pipeline once and writes the document to out.
func render(ctx context.Context, cfg *config.Config, params url.Values, logger zerolog.Logger, out io.Writer) error {
	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Name:       "inspire",
		Timeout:    cfg.Upstream.Timeout,
		RateLimit:  cfg.Upstream.RateLimit,
		BurstSize:  cfg.Upstream.BurstSize,
		MaxRetries: cfg.Upstream.MaxRetries,
		RetryDelay: cfg.Upstream.RetryDelay,
		UserAgent:  cfg.Upstream.UserAgent,
	})
	client := inspire.NewWithHTTPClient(inspire.Config{BaseURL: cfg.Upstream.BaseURL}, httpClient)

	channel := domain.Channel{
		Title:       cfg.Channel.Title,
		Link:        cfg.Channel.Link,
		Description: cfg.Channel.Description,
	}
	svc := feed.NewService(client, channel, nil, logger)

	start := time.Now()
	doc, err := svc.Render(ctx, params)
	if err != nil {
		return fmt.Errorf("render feed: %w", err)
	}
	logger.Debug().Dur("elapsed", time.Since(start)).Msg("feed rendered")

	if _, err := io.WriteString(out, doc); err != nil {
		return fmt.Errorf("write feed: %w", err)
	}
	_, err = io.WriteString(out, "\n")
	return err
}

// parseParams turns repeated key=value flags into query parameters. Values may
// themselves contain '='; repeated keys keep every value in order.
func parseParams(raw []string) (url.Values, error) {
	params := url.Values{}
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, domain.NewValidationError("param", fmt.Sprintf("%q is not key=value", kv))
		}
		params.Add(key, value)
	}
	return params, nil
}
