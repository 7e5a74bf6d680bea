package authprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/coaching-booking-platform/pkg/logging"
)

// GoTrueConfig points at a GoTrue-compatible hosted auth API.
type GoTrueConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// GoTrueAuthenticator signs in with the password grant and revokes the
// resulting session through /logout.
type GoTrueAuthenticator struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *logging.Logger
}

// NewGoTrueAuthenticator validates cfg and returns an authenticator.
func NewGoTrueAuthenticator(cfg GoTrueConfig, client *http.Client, logger *logging.Logger) (*GoTrueAuthenticator, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("authprobe: auth base url is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("authprobe: auth api key is required")
	}
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &GoTrueAuthenticator{baseURL: base, apiKey: cfg.APIKey, client: client, logger: logger}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

// SignIn exchanges email and password for a session.
func (a *GoTrueAuthenticator) SignIn(ctx context.Context, email, password string) (*Session, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, fmt.Errorf("authprobe: encode sign-in: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/auth/v1/token?grant_type=password", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("authprobe: build sign-in request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("authprobe: sign-in request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAuthError(resp)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("authprobe: decode sign-in response: %w", err)
	}
	if token.User.ID == "" || token.AccessToken == "" {
		return nil, fmt.Errorf("authprobe: sign-in response missing user or token")
	}
	return &Session{UserID: token.User.ID, Email: token.User.Email, AccessToken: token.AccessToken}, nil
}

// SignOut revokes the session's refresh tokens.
func (a *GoTrueAuthenticator) SignOut(ctx context.Context, session *Session) error {
	if session == nil || session.AccessToken == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/auth/v1/logout", nil)
	if err != nil {
		return fmt.Errorf("authprobe: build sign-out request: %w", err)
	}
	req.Header.Set("apikey", a.apiKey)
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("authprobe: sign-out request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeAuthError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Ping reports whether the auth service answers its health endpoint.
func (a *GoTrueAuthenticator) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/auth/v1/health", nil)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", a.apiKey)
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("authprobe: health request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &AuthError{Status: resp.StatusCode, Message: "health check failed"}
	}
	return nil
}

func decodeAuthError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	authErr := &AuthError{Status: resp.StatusCode}
	var payload errorResponse
	if json.Unmarshal(raw, &payload) == nil {
		authErr.Code = firstNonEmpty(payload.ErrorCode, payload.Error)
		authErr.Message = firstNonEmpty(payload.ErrorDescription, payload.Msg, payload.Message)
	}
	if authErr.Message == "" {
		authErr.Message = http.StatusText(resp.StatusCode)
	}
	return authErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
