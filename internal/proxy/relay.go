package proxy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/n0madic/go-lanbridge/internal/auth"
	"github.com/n0madic/go-lanbridge/internal/upstream"
)

// writeUpstreamFailure maps a failed upstream call (no response) to a client error.
func writeUpstreamFailure(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var authErr *auth.AuthError
	switch {
	case errors.As(err, &authErr):
		writeError(w, logger, http.StatusInternalServerError, authErr.Error())
	case errors.Is(r.Context().Err(), context.Canceled):
		logger.Debug("client.disconnected", "error", err)
	default:
		writeError(w, logger, http.StatusBadGateway, err.Error())
	}
}

// relayStatusError returns an upstream error response to the client
// byte-for-byte, with its status and content type. It is never streamed.
func relayStatusError(w http.ResponseWriter, logger *slog.Logger, resp *upstream.Response, attrs ...any) {
	se, err := upstream.ReadStatusError(resp)
	if err != nil {
		writeError(w, logger, http.StatusBadGateway, err.Error())
		return
	}
	logAttrs := append([]any{
		"status", se.StatusCode,
		"error", se.Error(),
		"content_type", se.ContentType,
		"body_sample", se.Sample(errorSampleBytes),
	}, attrs...)
	if se.RequestID != "" {
		logAttrs = append(logAttrs, "upstream_request_id", se.RequestID)
	}
	logger.Warn("responses.upstream_error", logAttrs...)

	w.Header().Set("Content-Type", se.ContentType)
	w.WriteHeader(se.StatusCode)
	w.Write(se.Body) //nolint:errcheck
}

// relayBuffered reads the whole upstream body and returns it unchanged.
func relayBuffered(w http.ResponseWriter, logger *slog.Logger, resp *upstream.Response) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		writeError(w, logger, http.StatusBadGateway, "read upstream body: "+err.Error())
		return
	}
	logger.Debug("responses.body", "bytes", len(body), "sample", upstream.Sample(body, successSampleBytes))

	w.Header().Set("Content-Type", resp.ContentType("application/json"))
	w.WriteHeader(resp.StatusCode)
	w.Write(body) //nolint:errcheck
}
