package translate

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeTextOrder(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "nested output_text wins",
			body: `{"output_text":"top","response":{"output_text":"nested","output":[{"type":"output_text","text":"item"}]}}`,
			want: "nested",
		},
		{
			name: "top-level output_text",
			body: `{"output_text":"top","output":[{"type":"output_text","text":"item"}]}`,
			want: "top",
		},
		{
			name: "message items",
			body: `{"output":[{"type":"reasoning","summary":[]},{"type":"message","content":[{"type":"output_text","text":"Hello"},{"type":"refusal","refusal":"no"},{"type":"text","text":" world"}]}]}`,
			want: "Hello world",
		},
		{
			name: "output_text items concatenated without separator",
			body: `{"output":[{"type":"output_text","text":"a"},{"type":"output_text","text":"b"}]}`,
			want: "ab",
		},
		{
			name: "nested output preferred over top-level",
			body: `{"output":[{"type":"output_text","text":"top"}],"response":{"output":[{"type":"output_text","text":"nested"}]}}`,
			want: "nested",
		},
		{
			name: "empty nested output falls back",
			body: `{"output":[{"type":"output_text","text":"top"}],"response":{"output":[]}}`,
			want: "top",
		},
		{
			name: "empty output_text falls through to items",
			body: `{"output_text":"","output":[{"type":"output_text","text":"x"}]}`,
			want: "x",
		},
		{
			name: "wrong types treated as absent",
			body: `{"output_text":5,"response":"nope","output":[{"type":"message","content":"flat"},{"type":"output_text","text":7},{"type":"output_text","text":"ok"}]}`,
			want: "ok",
		},
		{
			name: "non-object body",
			body: `["a","b"]`,
			want: "",
		},
		{
			name: "nothing usable",
			body: `{"id":"resp_1"}`,
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := DecodeEnvelope([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, env.Text())
		})
	}
}

func TestDecodeEnvelopeRejectsNonJSON(t *testing.T) {
	_, err := DecodeEnvelope([]byte("<html>oops</html>"))
	assert.ErrorIs(t, err, ErrInvalidUpstreamBody)
}

func TestCompletionID(t *testing.T) {
	env, _ := DecodeEnvelope([]byte(`{"id":"resp_top","response":{"id":"resp_nested"}}`))
	assert.Equal(t, "resp_top", env.CompletionID())

	env, _ = DecodeEnvelope([]byte(`{"response":{"id":"resp_nested"}}`))
	assert.Equal(t, "resp_nested", env.CompletionID())

	env, _ = DecodeEnvelope([]byte(`{"id":12}`))
	id := env.CompletionID()
	assert.True(t, strings.HasPrefix(id, "chatcmpl-"), id)
	assert.Len(t, id, len("chatcmpl-")+36)
}

func TestCompletion(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"id":"resp_1","output":[{"type":"message","content":[{"type":"output_text","text":"Hello"}]}]}`))
	require.NoError(t, err)

	now := time.Unix(1700000000, 0)
	out := Completion(env, "gpt-5", now)

	assert.Equal(t, "resp_1", out.ID)
	assert.Equal(t, "chat.completion", out.Object)
	assert.Equal(t, int64(1700000000), out.Created)
	assert.Equal(t, "gpt-5", out.Model)
	require.Len(t, out.Choices, 1)
	assert.Equal(t, 0, out.Choices[0].Index)
	assert.Equal(t, "assistant", out.Choices[0].Message.Role)
	assert.Equal(t, "Hello", out.Choices[0].Message.Content)
	assert.Equal(t, "stop", out.Choices[0].FinishReason)
}

func TestOutputItemKinds(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want OutputItem
	}{
		{
			name: "message keeps text parts in order",
			raw:  `{"type":"message","content":[{"type":"output_text","text":"a"},{"type":"refusal","refusal":"r"},{"type":"text","text":"b"}]}`,
			want: OutputItem{Kind: KindMessage, Parts: []string{"a", "b"}},
		},
		{
			name: "output_text item",
			raw:  `{"type":"output_text","text":"hello"}`,
			want: OutputItem{Kind: KindOutputText, Text: "hello"},
		},
		{
			name: "output_text with non-string text",
			raw:  `{"type":"output_text","text":3}`,
			want: OutputItem{Kind: KindOther},
		},
		{
			name: "reasoning item",
			raw:  `{"type":"reasoning","summary":[{"type":"summary_text","text":"hidden"}]}`,
			want: OutputItem{Kind: KindOther},
		},
		{
			name: "not an object",
			raw:  `"loose"`,
			want: OutputItem{Kind: KindOther},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var item OutputItem
			require.NoError(t, item.UnmarshalJSON([]byte(tt.raw)))
			assert.Equal(t, tt.want, item)
		})
	}
}
