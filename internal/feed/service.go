package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/inspire-rss-service/internal/domain"
	"github.com/helixir/inspire-rss-service/internal/observability"
	"github.com/helixir/inspire-rss-service/internal/papersources"
	"github.com/helixir/inspire-rss-service/internal/papersources/inspire"
)

// Failure reasons reported on the upstream failure metric.
const (
	reasonCircuitOpen = "circuit_open"
	reasonHTTPStatus  = "http_status"
	reasonDecode      = "decode"
	reasonCancelled   = "cancelled"
	reasonTransport   = "transport"
)

// Fetcher retrieves one page of literature search results.
type Fetcher interface {
	Search(ctx context.Context, params url.Values) (*inspire.SearchResponse, error)
}

// Service runs the fetch, map and assemble pipeline for a single request.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	fetcher Fetcher
	channel domain.Channel
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewService creates a Service. metrics may be nil.
func NewService(fetcher Fetcher, channel domain.Channel, metrics *observability.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		fetcher: fetcher,
		channel: channel,
		metrics: metrics,
		logger:  logger.With().Str("component", "feed").Logger(),
	}
}

// Render fetches results for params and returns them as an RSS document.
// Fetch failures wrap domain.ErrUpstreamFetch; there is no partial output.
func (s *Service) Render(ctx context.Context, params url.Values) (string, error) {
	if zerolog.Ctx(ctx) == zerolog.Ctx(context.Background()) {
		ctx = s.logger.WithContext(ctx)
	}
	logger := zerolog.Ctx(ctx)

	start := time.Now()
	resp, err := s.fetcher.Search(ctx, params)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		reason := failureReason(err)
		if s.metrics != nil {
			s.metrics.RecordUpstreamFailed(reason, elapsed)
		}
		logger.Debug().Err(err).Str("reason", reason).Msg("literature search failed")
		return "", domain.UpstreamError("searching literature", err)
	}
	if resp == nil {
		resp = &inspire.SearchResponse{}
	}

	hits := resp.Hits.Hits
	if s.metrics != nil {
		s.metrics.RecordUpstreamRequest(elapsed, len(hits))
	}

	items := inspire.HitsToFeedItems(hits)
	doc, err := Assemble(s.channel, items)
	if err != nil {
		return "", fmt.Errorf("assembling feed: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordFeedRendered(len(items))
	}
	logger.Info().
		Int("items", len(items)).
		Int("total", resp.Hits.Total).
		Msg("feed rendered")

	return doc, nil
}

// failureReason classifies a fetch error for metrics and logs.
func failureReason(err error) string {
	var apiErr *domain.ExternalAPIError
	var statusErr *papersources.StatusError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.Is(err, papersources.ErrCircuitOpen):
		return reasonCircuitOpen
	case errors.As(err, &apiErr), errors.As(err, &statusErr):
		return reasonHTTPStatus
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr), errors.Is(err, io.ErrUnexpectedEOF):
		return reasonDecode
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return reasonCancelled
	default:
		return reasonTransport
	}
}
