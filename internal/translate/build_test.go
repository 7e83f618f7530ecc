package translate

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/n0madic/go-lanbridge/internal/types"
)

func decodeChat(t *testing.T, body string) *types.ChatCompletionRequest {
	t.Helper()
	var req types.ChatCompletionRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return &req
}

func TestBuildScenario(t *testing.T) {
	req := decodeChat(t, `{"model":"gpt-5","messages":[
		{"role":"system","content":"Be terse."},
		{"role":"user","content":"Hi"}
	]}`)

	native, err := Build(req)
	require.NoError(t, err)

	body := native.Body
	assert.Equal(t, "gpt-5", gjson.GetBytes(body, "model").String())
	assert.Equal(t, "Be terse.", gjson.GetBytes(body, "instructions").String())

	input := gjson.GetBytes(body, "input").Array()
	require.Len(t, input, 1)
	assert.Equal(t, "user", input[0].Get("role").String())
	content := input[0].Get("content").Array()
	require.Len(t, content, 1)
	assert.Equal(t, "input_text", content[0].Get("type").String())
	assert.Equal(t, "Hi", content[0].Get("text").String())

	assert.Equal(t, "[]", gjson.GetBytes(body, "tools").Raw)
	assert.Equal(t, "[]", gjson.GetBytes(body, "include").Raw)
	assert.Equal(t, "auto", gjson.GetBytes(body, "tool_choice").String())
	assert.Equal(t, gjson.False, gjson.GetBytes(body, "parallel_tool_calls").Type)
	assert.Equal(t, gjson.False, gjson.GetBytes(body, "store").Type)
	assert.Equal(t, gjson.False, gjson.GetBytes(body, "stream").Type)
}

func TestBuildJoinsTexts(t *testing.T) {
	req := decodeChat(t, `{"messages":[
		{"role":"system","content":"A"},
		{"role":"system","content":""},
		{"role":"system","content":"B"},
		{"role":"user","content":[{"type":"text","text":"u1"},{"type":"image_url","image_url":{"url":"x"}},{"type":"input_text","text":"u2"}]},
		{"role":"assistant","content":"ignored"},
		{"role":"user","content":"u3"},
		{"role":"user","content":null}
	]}`)

	native, err := Build(req)
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, native.Model)
	assert.Equal(t, "A\n\nB", native.Instructions)
	assert.Equal(t, "u1\nu2\n\nu3", native.UserText)
	assert.Equal(t, "A\n\nB", gjson.GetBytes(native.Body, "instructions").String())
	assert.Equal(t, "u1\nu2\n\nu3", gjson.GetBytes(native.Body, "input.0.content.0.text").String())
}

func TestBuildEmptyMessages(t *testing.T) {
	native, err := Build(decodeChat(t, `{"model":"m"}`))
	require.NoError(t, err)
	instructions := gjson.GetBytes(native.Body, "instructions")
	assert.True(t, instructions.Exists())
	assert.Equal(t, "", instructions.String())
	assert.Equal(t, "", gjson.GetBytes(native.Body, "input.0.content.0.text").String())
}

func TestBuildRejectsStreaming(t *testing.T) {
	_, err := Build(decodeChat(t, `{"model":"m","stream":true,"messages":[]}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStreamingUnsupported))
	assert.Equal(t, "stream=true not supported via bridge; use Responses /v1/responses for streaming.", err.Error())
}

func TestContentText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "absent", raw: "", want: ""},
		{name: "null", raw: "null", want: ""},
		{name: "string", raw: `"hello"`, want: "hello"},
		{name: "escaped string", raw: `"a\nb"`, want: "a\nb"},
		{name: "parts", raw: `[{"type":"text","text":"a"},{"type":"input_text","text":"b"}]`, want: "a\nb"},
		{name: "parts skip non text", raw: `[{"type":"image_url"},{"type":"text","text":""},{"type":"text","text":"c"}]`, want: "c"},
		{name: "parts with bare values", raw: `["x",1,{"type":"text","text":"d"}]`, want: "d"},
		{name: "number", raw: `42`, want: "42"},
		{name: "object", raw: `{"k":"v"}`, want: `{"k":"v"}`},
		{name: "bool", raw: `true`, want: "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContentText(json.RawMessage(tt.raw)))
		})
	}
}
