package httpserver

import (
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

// rssContentType is sent with every successful feed response.
const rssContentType = "application/rss+xml; charset=utf-8"

// feedHandler forwards the request's query parameters to the renderer and writes
// the resulting RSS document. Any failure yields a 500 with an empty body.
func (s *Server) feedHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	doc, err := s.renderer.Render(ctx, r.URL.Query())
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to render feed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", rssContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, doc); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to write feed response")
	}
}
