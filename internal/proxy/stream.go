package proxy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/n0madic/go-lanbridge/internal/upstream"
)

const streamReadSize = 32 * 1024

// chunk is one upstream read handed from the reader goroutine to the writer.
type chunk struct {
	data []byte
	err  error
}

// pumpChunks reads body on its own goroutine and sends every read as a chunk.
// The channel is unbuffered, so the reader stays at most one read ahead of the
// client. The goroutine exits at EOF, on a read error, or when ctx is done.
func pumpChunks(ctx context.Context, body io.Reader) <-chan chunk {
	out := make(chan chunk)
	go func() {
		defer close(out)
		for {
			buf := make([]byte, streamReadSize)
			n, err := body.Read(buf)
			if n > 0 {
				select {
				case out <- chunk{data: buf[:n]}:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					select {
					case out <- chunk{err: err}:
					case <-ctx.Done():
					}
				}
				return
			}
		}
	}()
	return out
}

// relayStream forwards upstream bytes to the client as they arrive, flushing
// after every chunk. ctx is the upstream request context and cancel aborts it;
// cancel runs before the body is closed so a blocked read returns promptly.
func relayStream(ctx context.Context, cancel context.CancelFunc, w http.ResponseWriter, logger *slog.Logger, resp *upstream.Response) {
	defer resp.Body.Close()
	defer cancel()

	rc := http.NewResponseController(w)
	writeSSEHeaders(w, resp.StatusCode)
	canFlush := true
	if err := rc.Flush(); err != nil {
		canFlush = false
		logger.Debug("responses.flush_unsupported", "error", err)
	}

	var total, chunks int
	for c := range pumpChunks(ctx, resp.Body) {
		if c.err != nil {
			logger.Warn("responses.stream_error", "error", c.err, "bytes", total, "chunks", chunks)
			return
		}
		if chunks == 0 {
			logger.Info("responses.first_chunk", "bytes", len(c.data), "sample", upstream.Sample(c.data, firstChunkBytes))
		}
		chunks++
		total += len(c.data)
		if _, err := w.Write(c.data); err != nil {
			logger.Debug("client.disconnected", "error", err, "bytes", total)
			return
		}
		if canFlush {
			if err := rc.Flush(); err != nil {
				logger.Debug("client.disconnected", "error", err, "bytes", total)
				return
			}
		}
	}
	logger.Debug("responses.stream_done", "bytes", total, "chunks", chunks)
}
