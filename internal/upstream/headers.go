package upstream

import (
	"net/http"
	"strings"

	"github.com/n0madic/go-lanbridge/internal/auth"
	"github.com/n0madic/go-lanbridge/internal/config"
)

// forwardedHeaders are copied from the inbound request when present.
// chatgpt-account-id from the client overrides the resolved account id.
var forwardedHeaders = []string{
	"originator",
	"session_id",
	"User-Agent",
	"chatgpt-account-id",
}

// BuildHeaders assembles the upstream request headers from the resolved
// credentials and the inbound request headers. inbound may be nil.
func BuildHeaders(creds *auth.Credentials, inbound http.Header) http.Header {
	h := make(http.Header)

	// Apply works on a request; borrow one to reuse oauth2's header formatting.
	carrier := &http.Request{Header: h}
	creds.Apply(carrier)

	h.Set("OpenAI-Beta", config.ResponsesBeta)
	h.Set("Origin", config.ChatGPTOrigin)
	h.Set("Referer", config.ChatGPTReferer)

	accept := strings.TrimSpace(inbound.Get("Accept"))
	if accept == "" {
		accept = "application/json"
	}
	h.Set("Accept", accept)
	if ct := strings.TrimSpace(inbound.Get("Content-Type")); ct != "" {
		h.Set("Content-Type", ct)
	}

	for _, name := range forwardedHeaders {
		if v := inbound.Get(name); v != "" {
			h.Set(name, v)
		}
	}

	if inbound.Get("originator") == "" {
		h.Set("originator", config.CodexOriginator())
	}
	if inbound.Get("User-Agent") == "" {
		h.Set("User-Agent", config.CodexDefaultUserAgent)
	}
	return h
}
