// Package translate maps the chat completions dialect onto the native
// responses dialect and back. Only the non-streaming path is supported.
package translate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
	"github.com/tidwall/sjson"

	"github.com/n0madic/go-lanbridge/internal/types"
)

// DefaultModel is used when the chat request names no model.
const DefaultModel = "gpt-4o-mini"

// ErrStreamingUnsupported is returned for chat requests with stream=true.
var ErrStreamingUnsupported = errors.New("stream=true not supported via bridge; use Responses /v1/responses for streaming.")

// Native is a chat request rewritten into the native payload.
type Native struct {
	Model        string
	Body         []byte
	Instructions string
	UserText     string
	Messages     int
}

// Build converts a chat completion request into a native responses payload.
// System texts become instructions, user texts are merged into one input
// message; other roles are ignored.
func Build(req *types.ChatCompletionRequest) (*Native, error) {
	if req.Stream {
		return nil, ErrStreamingUnsupported
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = DefaultModel
	}

	var system, user []string
	for _, m := range req.Messages {
		text := ContentText(m.Content)
		if text == "" {
			continue
		}
		switch m.Role {
		case "system":
			system = append(system, text)
		case "user":
			user = append(user, text)
		}
	}
	instructions := strings.Join(system, "\n\n")
	userText := strings.Join(user, "\n\n")

	params := responses.ResponseNewParams{
		Model:        shared.ResponsesModel(model),
		Instructions: openai.String(instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(
					responses.ResponseInputMessageContentListParam{
						responses.ResponseInputContentParamOfInputText(userText),
					},
					responses.EasyInputMessageRoleUser,
				),
			},
		},
		ToolChoice: responses.ResponseNewParamsToolChoiceUnion{
			OfToolChoiceMode: openai.Opt(responses.ToolChoiceOptionsAuto),
		},
		ParallelToolCalls: openai.Bool(false),
		Store:             openai.Bool(false),
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal native payload: %w", err)
	}
	// Empty lists are dropped by the SDK encoder, and stream is not a
	// request field there; the backend expects all three explicitly.
	for _, patch := range []struct {
		path string
		raw  string
	}{
		{"tools", "[]"},
		{"include", "[]"},
		{"stream", "false"},
	} {
		if body, err = sjson.SetRawBytes(body, patch.path, []byte(patch.raw)); err != nil {
			return nil, fmt.Errorf("patch native payload %s: %w", patch.path, err)
		}
	}

	return &Native{
		Model:        model,
		Body:         body,
		Instructions: instructions,
		UserText:     userText,
		Messages:     len(req.Messages),
	}, nil
}

// ContentText flattens chat message content to text. Strings are used as-is,
// lists contribute the text of their text and input_text parts joined by a
// newline, null and absent content yield "", and any other value is rendered
// as its JSON text.
func ContentText(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case '[':
		var parts []json.RawMessage
		if err := json.Unmarshal(raw, &parts); err != nil {
			return ""
		}
		texts := make([]string, 0, len(parts))
		for _, p := range parts {
			var part types.ContentPart
			if err := json.Unmarshal(p, &part); err != nil {
				continue
			}
			if (part.Type == "text" || part.Type == "input_text") && part.Text != "" {
				texts = append(texts, part.Text)
			}
		}
		return strings.Join(texts, "\n")
	default:
		return trimmed
	}
}
