// Package limits reads the Codex usage windows the backend reports on every
// response. The bridge only logs them; nothing is kept between requests.
package limits

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"
)

// Window is one usage window reported by the backend.
type Window struct {
	UsedPercent     float64
	WindowMinutes   *int
	ResetsInSeconds *int
}

// Snapshot holds the primary and secondary windows of one response.
type Snapshot struct {
	Primary   *Window
	Secondary *Window
}

// ParseHeaders extracts usage windows from upstream response headers.
// It returns nil when neither window is present.
func ParseHeaders(headers http.Header) *Snapshot {
	if headers == nil {
		return nil
	}
	primary := parseWindow(headers,
		"x-codex-primary-used-percent",
		"x-codex-primary-window-minutes",
		"x-codex-primary-reset-after-seconds",
	)
	secondary := parseWindow(headers,
		"x-codex-secondary-used-percent",
		"x-codex-secondary-window-minutes",
		"x-codex-secondary-reset-after-seconds",
	)
	if primary == nil && secondary == nil {
		return nil
	}
	return &Snapshot{Primary: primary, Secondary: secondary}
}

func parseWindow(headers http.Header, usedKey, windowKey, resetKey string) *Window {
	usedStr := headers.Get(usedKey)
	if usedStr == "" {
		return nil
	}
	used, err := strconv.ParseFloat(usedStr, 64)
	if err != nil || math.IsNaN(used) || math.IsInf(used, 0) {
		return nil
	}
	w := &Window{UsedPercent: used}
	if v := headers.Get(windowKey); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			w.WindowMinutes = &i
		}
	}
	if v := headers.Get(resetKey); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			w.ResetsInSeconds = &i
		}
	}
	return w
}

// ResetAt returns when the window resets, measured from now.
func (w *Window) ResetAt(now time.Time) (time.Time, bool) {
	if w == nil || w.ResetsInSeconds == nil {
		return time.Time{}, false
	}
	return now.Add(time.Duration(*w.ResetsInSeconds) * time.Second), true
}

// group renders the window as a slog group named name. resets_at is the
// absolute reset time computed from now.
func (w *Window) group(name string, now time.Time) slog.Attr {
	attrs := []any{slog.Float64("used_percent", w.UsedPercent)}
	if w.WindowMinutes != nil {
		attrs = append(attrs, slog.Int("window_minutes", *w.WindowMinutes))
	}
	if w.ResetsInSeconds != nil {
		attrs = append(attrs, slog.Int("resets_in_seconds", *w.ResetsInSeconds))
	}
	if at, ok := w.ResetAt(now); ok {
		attrs = append(attrs, slog.Time("resets_at", at.UTC()))
	}
	return slog.Group(name, attrs...)
}

// Attrs returns the snapshot as log attributes, one group per window.
func (s *Snapshot) Attrs(now time.Time) []any {
	var attrs []any
	if s.Primary != nil {
		attrs = append(attrs, s.Primary.group("primary", now))
	}
	if s.Secondary != nil {
		attrs = append(attrs, s.Secondary.group("secondary", now))
	}
	return attrs
}

// Log writes an upstream.ratelimit debug record when headers carry usage windows.
func Log(logger *slog.Logger, headers http.Header) {
	snap := ParseHeaders(headers)
	if snap == nil || logger == nil {
		return
	}
	logger.Debug("upstream.ratelimit", snap.Attrs(time.Now())...)
}
