package auth

import "errors"

var (
	ErrInvalidJWT    = errors.New("invalid JWT token")
	ErrNoCredentials = errors.New("no usable ChatGPT access token; set CHATGPT_ACCESS_TOKEN or run 'codex login'")
)

// AuthError reports that a request needing upstream access has no usable credential.
type AuthError struct {
	Path string
	Err  error
}

func (e *AuthError) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + " (checked " + e.Path + ")"
}

func (e *AuthError) Unwrap() error { return e.Err }
