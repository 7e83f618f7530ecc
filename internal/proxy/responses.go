package proxy

import (
	"context"
	"net/http"

	"github.com/n0madic/go-lanbridge/internal/upstream"
)

// handleResponses relays a native responses request. JSON object bodies are
// normalized; anything else is forwarded byte-for-byte.
func (s *Server) handleResponses(w http.ResponseWriter, r *http.Request) {
	logger := s.requestLogger(r)

	body, ok := readLimitedRequestBody(w, r, logger)
	if !ok {
		return
	}

	contentType := r.Header.Get("Content-Type")
	accept := r.Header.Get("Accept")
	sessionID := r.Header.Get("session_id")

	outBody := body
	reqAttrs := []any{"session_id", sessionID}
	if res, normalized := s.normalizer.Normalize(body, contentType, sessionID); normalized {
		outBody = res.Body
		reqAttrs = append(reqAttrs,
			"cache_key", res.PromptCacheKey,
			"store_before", res.StoreBefore,
			"model", res.ModelBefore,
			"model_upstream", res.ModelAfter,
			"input_len", res.InputLen,
			"dropped_reasoning", res.DroppedReasoning,
			"cleared_ids", res.ClearedIDs,
			"duplicate_keys", res.DuplicateKeys,
		)
	} else {
		reqAttrs = append(reqAttrs, "passthrough", true)
	}
	logger.Info("responses.request", append([]any{
		"content_type", contentType,
		"accept", accept,
		"bytes", len(outBody),
	}, reqAttrs...)...)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	resp, err := s.upstreamClient.Do(ctx, &upstream.Request{Body: outBody, Inbound: r.Header})
	if err != nil {
		writeUpstreamFailure(w, r, logger, err)
		return
	}
	logger.Info("responses.upstream",
		"status", resp.StatusCode,
		"content_type", resp.Header.Get("Content-Type"),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		relayStatusError(w, logger, resp, reqAttrs...)
		return
	}
	if wantsEventStream(accept) {
		relayStream(ctx, cancel, w, logger, resp)
		return
	}
	relayBuffered(w, logger, resp)
}
