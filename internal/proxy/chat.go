package proxy

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/n0madic/go-lanbridge/internal/translate"
	"github.com/n0madic/go-lanbridge/internal/types"
	"github.com/n0madic/go-lanbridge/internal/upstream"
)

// handleChatCompletions serves the non-streaming chat completions dialect by
// translating to a native request and flattening the answer text.
func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	logger := s.requestLogger(r)

	body, ok := readLimitedRequestBody(w, r, logger)
	if !ok {
		return
	}
	var req types.ChatCompletionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, logger, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	native, err := translate.Build(&req)
	if err != nil {
		if errors.Is(err, translate.ErrStreamingUnsupported) {
			writeError(w, logger, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, logger, http.StatusInternalServerError, err.Error())
		return
	}
	logger.Info("chat.request",
		"model", native.Model,
		"messages", native.Messages,
		"instructions_chars", len(native.Instructions),
		"user_chars", len(native.UserText),
	)

	inbound := http.Header{}
	inbound.Set("Accept", "application/json")
	inbound.Set("Content-Type", "application/json")

	resp, err := s.upstreamClient.Do(r.Context(), &upstream.Request{Body: native.Body, Inbound: inbound})
	if err != nil {
		writeUpstreamFailure(w, r, logger, err)
		return
	}
	if resp.StatusCode >= http.StatusBadRequest {
		relayStatusError(w, logger, resp, "model", native.Model)
		return
	}

	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		writeError(w, logger, http.StatusBadGateway, "read upstream body: "+err.Error())
		return
	}
	env, err := translate.DecodeEnvelope(data)
	if err != nil {
		logger.Warn("chat.upstream_invalid", "status", resp.StatusCode, "body_sample", upstream.Sample(data, errorSampleBytes))
		writeError(w, logger, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, translate.Completion(env, native.Model, time.Now()))
}
