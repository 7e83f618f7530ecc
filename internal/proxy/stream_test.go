package proxy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n0madic/go-lanbridge/internal/upstream"
)

// scriptedBody returns one scripted chunk per Read, then err (io.EOF by default).
type scriptedBody struct {
	chunks []string
	err    error
	closed bool
}

func (b *scriptedBody) Read(p []byte) (int, error) {
	if len(b.chunks) == 0 {
		if b.err != nil {
			return 0, b.err
		}
		return 0, io.EOF
	}
	n := copy(p, b.chunks[0])
	b.chunks = b.chunks[1:]
	return n, nil
}

func (b *scriptedBody) Close() error {
	b.closed = true
	return nil
}

// writeRecorder keeps every Write separately so chunk boundaries can be checked.
type writeRecorder struct {
	*httptest.ResponseRecorder
	writes  []string
	flushes int
}

func (w *writeRecorder) Write(p []byte) (int, error) {
	w.writes = append(w.writes, string(p))
	return w.ResponseRecorder.Write(p)
}

func (w *writeRecorder) Flush() {
	w.flushes++
	w.ResponseRecorder.Flush()
}

func TestRelayStreamPreservesChunkBoundaries(t *testing.T) {
	chunks := []string{"data: a\n\n", "data: b", "c\n\n", "data: [DONE]\n\n"}
	body := &scriptedBody{chunks: append([]string(nil), chunks...)}
	resp := &upstream.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: body}
	w := &writeRecorder{ResponseRecorder: httptest.NewRecorder()}

	ctx, cancel := context.WithCancel(context.Background())
	relayStream(ctx, cancel, w, testLogger(t), resp)

	assert.Equal(t, chunks, w.writes)
	assert.GreaterOrEqual(t, w.flushes, len(chunks))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.True(t, body.closed)
	assert.Error(t, ctx.Err(), "upstream context is cancelled once the relay ends")
}

func TestRelayStreamStopsOnReadError(t *testing.T) {
	body := &scriptedBody{chunks: []string{"data: a\n\n"}, err: errors.New("connection reset")}
	resp := &upstream.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: body}
	w := &writeRecorder{ResponseRecorder: httptest.NewRecorder()}

	ctx, cancel := context.WithCancel(context.Background())
	relayStream(ctx, cancel, w, testLogger(t), resp)

	assert.Equal(t, []string{"data: a\n\n"}, w.writes)
	assert.True(t, body.closed)
}

// blockingBody blocks in Read until unblocked.
type blockingBody struct {
	unblock chan struct{}
}

func (b *blockingBody) Read(p []byte) (int, error) {
	<-b.unblock
	return 0, io.ErrUnexpectedEOF
}

func TestPumpChunksExitsOnCancel(t *testing.T) {
	body := &scriptedBody{chunks: []string{"one", "two", "three"}}
	ctx, cancel := context.WithCancel(context.Background())
	ch := pumpChunks(ctx, body)

	first := <-ch
	require.NoError(t, first.err)
	assert.Equal(t, "one", string(first.data))

	cancel()
	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pump goroutine did not exit after cancel")
	}
}

func TestPumpChunksReportsReadError(t *testing.T) {
	body := &blockingBody{unblock: make(chan struct{})}
	ch := pumpChunks(context.Background(), body)
	close(body.unblock)

	c, ok := <-ch
	require.True(t, ok)
	assert.ErrorIs(t, c.err, io.ErrUnexpectedEOF)
	_, ok = <-ch
	assert.False(t, ok)
}
