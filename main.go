package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

var rootCmd = &cobra.Command{
	Use:   "go-lanbridge",
	Short: "LAN bridge to the ChatGPT Codex responses backend",
	Long:  "Accepts OpenAI chat-completions and raw responses requests from the local network and forwards them to the ChatGPT Codex backend using local Codex credentials.",
}

func init() {
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)
	rootCmd.SilenceUsage = true
	rootCmd.AddCommand(newServeCmd(), newInfoCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger builds the process logger. Records go to stderr and, when logFile
// is set, to a rotating file as well.
func newLogger(stderr io.Writer, logFile string, verbose bool) (*slog.Logger, io.Closer) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	out := stderr
	var closer io.Closer = nopCloser{}
	if logFile != "" {
		lj := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    20,
			MaxBackups: 5,
			MaxAge:     28,
		}
		out = io.MultiWriter(stderr, lj)
		closer = lj
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
