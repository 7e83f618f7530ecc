package config

import (
	"os"
	"strings"
)

const (
	// CodexDefaultOriginator matches Codex CLI default originator naming.
	CodexDefaultOriginator = "codex_cli_rs"
	// CodexDefaultUserAgent is sent when the client did not supply a User-Agent.
	CodexDefaultUserAgent = "codex_cli_rs"
	// ChatGPTOrigin is presented as Origin and Referer; the backend checks browser-like headers.
	ChatGPTOrigin  = "https://chatgpt.com"
	ChatGPTReferer = "https://chatgpt.com/"
	// ResponsesBeta enables the experimental Responses surface on the backend.
	ResponsesBeta = "responses=experimental"

	originatorOverrideEnv = "CODEX_INTERNAL_ORIGINATOR_OVERRIDE"
)

// CodexOriginator returns the originator injected when the client did not send one.
func CodexOriginator() string {
	if candidate := strings.TrimSpace(os.Getenv(originatorOverrideEnv)); isValidHeaderValue(candidate) {
		return candidate
	}
	return CodexDefaultOriginator
}

func isValidHeaderValue(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	for _, r := range s {
		if r < ' ' || r == 0x7f {
			return false
		}
	}
	return true
}
