package translate

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/n0madic/go-lanbridge/internal/types"
)

// ErrInvalidUpstreamBody is returned when a successful upstream body is not JSON.
var ErrInvalidUpstreamBody = errors.New("upstream returned a non-JSON body")

// ItemKind is the variant of an upstream output item.
type ItemKind int

const (
	KindOther ItemKind = iota
	KindMessage
	KindOutputText
)

// OutputItem is one element of an upstream output list. Parts holds the text
// parts of a message item; Text holds the text of an output_text item.
type OutputItem struct {
	Kind  ItemKind
	Parts []string
	Text  string
}

// UnmarshalJSON never fails: anything that is not a recognized item becomes KindOther.
func (o *OutputItem) UnmarshalJSON(data []byte) error {
	*o = OutputItem{Kind: KindOther}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	var typ string
	_ = json.Unmarshal(fields["type"], &typ)

	switch typ {
	case "message":
		o.Kind = KindMessage
		var parts []json.RawMessage
		_ = json.Unmarshal(fields["content"], &parts)
		for _, p := range parts {
			var part map[string]json.RawMessage
			if json.Unmarshal(p, &part) != nil {
				continue
			}
			var partType string
			_ = json.Unmarshal(part["type"], &partType)
			if partType != "output_text" && partType != "text" {
				continue
			}
			if text, ok := decodeString(part["text"]); ok {
				o.Parts = append(o.Parts, text)
			}
		}
	case "output_text":
		text, ok := decodeString(fields["text"])
		if !ok {
			return nil
		}
		o.Kind = KindOutputText
		o.Text = text
	}
	return nil
}

// Envelope is the subset of an upstream responses body used for extraction.
// Response holds the nested "response" object some payloads wrap results in.
type Envelope struct {
	ID         string
	OutputText string
	Output     []OutputItem
	Response   *Envelope
}

// DecodeEnvelope decodes body leniently: fields of an unexpected type are
// treated as absent. It fails only when body is not JSON.
func DecodeEnvelope(body []byte) (*Envelope, error) {
	if !json.Valid(body) {
		return nil, ErrInvalidUpstreamBody
	}
	return decodeEnvelope(body, true), nil
}

func decodeEnvelope(raw json.RawMessage, nested bool) *Envelope {
	env := &Envelope{}
	var fields map[string]json.RawMessage
	if json.Unmarshal(raw, &fields) != nil {
		return env
	}
	env.ID, _ = decodeString(fields["id"])
	env.OutputText, _ = decodeString(fields["output_text"])
	_ = json.Unmarshal(fields["output"], &env.Output)
	if r, ok := fields["response"]; ok && nested {
		env.Response = decodeEnvelope(r, false)
	}
	return env
}

// Text returns the flattened assistant text. Consolidated output_text wins
// (nested response first); otherwise the output items of the nested response,
// or the top-level ones when that list is empty, are concatenated.
func (e *Envelope) Text() string {
	inner := e.Response
	if inner == nil {
		inner = &Envelope{}
	}
	if inner.OutputText != "" {
		return inner.OutputText
	}
	if e.OutputText != "" {
		return e.OutputText
	}
	items := inner.Output
	if len(items) == 0 {
		items = e.Output
	}
	var b strings.Builder
	for _, item := range items {
		switch item.Kind {
		case KindMessage:
			for _, part := range item.Parts {
				b.WriteString(part)
			}
		case KindOutputText:
			b.WriteString(item.Text)
		}
	}
	return b.String()
}

// CompletionID returns the upstream id, the nested response id, or a fresh chatcmpl id.
func (e *Envelope) CompletionID() string {
	if e.ID != "" {
		return e.ID
	}
	if e.Response != nil && e.Response.ID != "" {
		return e.Response.ID
	}
	return "chatcmpl-" + uuid.NewString()
}

// Completion builds the chat completion returned to the client.
func Completion(env *Envelope, model string, now time.Time) types.ChatCompletionResponse {
	return types.ChatCompletionResponse{
		ID:      env.CompletionID(),
		Object:  "chat.completion",
		Created: now.Unix(),
		Model:   model,
		Choices: []types.ChatChoice{{
			Index:        0,
			Message:      types.ChatResponseMsg{Role: "assistant", Content: env.Text()},
			FinishReason: "stop",
		}},
	}
}

func decodeString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
