package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/n0madic/go-lanbridge/internal/auth"
	"github.com/n0madic/go-lanbridge/internal/config"
	"github.com/spf13/cobra"
)

// credentialInfo is the credential status printed by `info`.
type credentialInfo struct {
	SignedIn      bool       `json:"signed_in"`
	AuthFile      string     `json:"auth_file"`
	TokenSource   string     `json:"token_source,omitempty"`
	AccountID     string     `json:"account_id,omitempty"`
	AccountSource string     `json:"account_source,omitempty"`
	Email         string     `json:"email,omitempty"`
	Plan          string     `json:"plan,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Expired       bool       `json:"expired"`
	Error         string     `json:"error,omitempty"`
}

func newInfoCmd() *cobra.Command {
	var (
		configPath string
		jsonOut    bool
	)

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show which ChatGPT credentials the bridge would use",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			info := inspectCredentials(auth.NewResolver(cfg.CodexHomeDir(), slog.New(slog.DiscardHandler)))
			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			printCredentialInfo(cmd.OutOrStdout(), info)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Optional YAML config file")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print credential status as JSON")
	return cmd
}

func inspectCredentials(r *auth.Resolver) credentialInfo {
	info := credentialInfo{AuthFile: auth.AuthFilePath(r.Home)}

	creds, err := r.Resolve()
	if err != nil {
		var authErr *auth.AuthError
		if errors.As(err, &authErr) {
			info.Error = authErr.Err.Error()
		} else {
			info.Error = err.Error()
		}
		return info
	}

	info.SignedIn = true
	info.TokenSource = string(creds.TokenSource)
	info.AccountID = creds.AccountID
	info.AccountSource = string(creds.AccountSource)
	info.Expired = creds.Expired()
	if !creds.Token.Expiry.IsZero() {
		exp := creds.Token.Expiry.UTC()
		info.ExpiresAt = &exp
	}

	if claims, err := auth.ParseJWTClaims(creds.IDToken); err == nil {
		info.Email, _ = claims["email"].(string)
		if info.Email == "" {
			info.Email, _ = claims["preferred_username"].(string)
		}
	}
	if claims, err := auth.ParseJWTClaims(creds.AccessToken()); err == nil {
		info.Plan = planName(auth.AuthClaim(claims, "chatgpt_plan_type"))
	}
	return info
}

func planName(raw string) string {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "":
		return ""
	case "plus":
		return "Plus"
	case "pro":
		return "Pro"
	case "free":
		return "Free"
	case "team":
		return "Team"
	case "enterprise":
		return "Enterprise"
	}
	return strings.ToUpper(raw[:1]) + raw[1:]
}

func printCredentialInfo(w io.Writer, info credentialInfo) {
	fmt.Fprintln(w, "Account")
	if !info.SignedIn {
		fmt.Fprintln(w, "  • Not signed in")
		fmt.Fprintf(w, "  • %s\n", info.Error)
		fmt.Fprintf(w, "  • Looked for %s\n", info.AuthFile)
		return
	}
	fmt.Fprintf(w, "  • Token: %s\n", info.TokenSource)
	if info.Email != "" {
		fmt.Fprintf(w, "  • Login: %s\n", info.Email)
	}
	if info.Plan != "" {
		fmt.Fprintf(w, "  • Plan: %s\n", info.Plan)
	}
	if info.AccountID != "" {
		fmt.Fprintf(w, "  • Account ID: %s (%s)\n", info.AccountID, info.AccountSource)
	} else {
		fmt.Fprintln(w, "  • Account ID: none")
	}
	if info.ExpiresAt != nil {
		state := "valid"
		if info.Expired {
			state = "expired"
		}
		fmt.Fprintf(w, "  • Expires: %s (%s)\n", info.ExpiresAt.Local().Format("Jan 02, 2006 15:04 MST"), state)
	}
}
