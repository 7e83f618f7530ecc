package proxy

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/n0madic/go-lanbridge/internal/types"
)

// maxBodyBytes limits the size of incoming request bodies to prevent memory exhaustion.
const maxBodyBytes = 10 * 1024 * 1024 // 10 MB

const (
	errorSampleBytes   = 320
	successSampleBytes = 200
	firstChunkBytes    = 80
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	logger.Error("request failed", "status", status, "error", message)
	writeJSON(w, status, types.NewError(message))
}

func readLimitedRequestBody(w http.ResponseWriter, r *http.Request, logger *slog.Logger) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, logger, http.StatusBadRequest, "Request body too large or unreadable")
		return nil, false
	}
	return body, true
}

func writeSSEHeaders(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(status)
}

func wantsEventStream(accept string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(accept)), "text/event-stream")
}
