package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/andresmonc/polyempire-sub000/internal/domain"
	"github.com/andresmonc/polyempire-sub000/pkg/api"
)

// Transport - тонкая обертка над REST протоколом сервера.
// Все методы принимают context: поллер живет в фоновой горутине
// и должен уметь останавливаться.
type Transport struct {
	BaseURL string
	HTTP    *http.Client
}

func NewTransport(baseURL string) *Transport {
	return &Transport{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *Transport) do(ctx context.Context, method, path string, body, dst any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// Сервер шлет доменные ошибки одним конвертом
		var apiErr api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return remoteError(resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// remoteError восстанавливает вид доменной ошибки из HTTP статуса.
func remoteError(status int, msg string) error {
	switch status {
	case http.StatusBadRequest:
		return domain.Validationf("%s", msg)
	case http.StatusNotFound:
		return domain.NotFoundf("%s", msg)
	case http.StatusConflict:
		return domain.Conflictf("%s", msg)
	case http.StatusForbidden:
		return domain.Unauthorizedf("%s", msg)
	default:
		return &domain.Error{Kind: domain.KindInternal, Message: msg}
	}
}

func (t *Transport) CreateGame(ctx context.Context, req api.CreateGameRequest) (*api.CreateGameResponse, error) {
	var resp api.CreateGameResponse
	if err := t.do(ctx, http.MethodPost, "/games", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (t *Transport) JoinGame(ctx context.Context, sessionID string, req api.JoinGameRequest) (*api.JoinGameResponse, error) {
	var resp api.JoinGameResponse
	if err := t.do(ctx, http.MethodPost, "/games/"+sessionID+"/join", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (t *Transport) GetGame(ctx context.Context, sessionID string) (*api.GameInfo, error) {
	var resp api.GameInfo
	if err := t.do(ctx, http.MethodGet, "/games/"+sessionID, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (t *Transport) SubmitAction(ctx context.Context, sessionID string, req api.SubmitActionRequest) (*api.SubmitActionResponse, error) {
	var resp api.SubmitActionResponse
	if err := t.do(ctx, http.MethodPost, "/games/"+sessionID+"/actions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetState опрашивает сервер. Пустой since запрашивает полный снимок.
func (t *Transport) GetState(ctx context.Context, sessionID, since string, full bool) (*api.StateResponse, error) {
	q := url.Values{}
	if since != "" {
		q.Set("since", since)
	}
	if full {
		q.Set("fullState", "true")
	}
	path := "/games/" + sessionID + "/state"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp api.StateResponse
	if err := t.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (t *Transport) DeclareWar(ctx context.Context, sessionID string, req api.WarRequest) (*api.GameInfo, error) {
	var resp api.GameInfo
	if err := t.do(ctx, http.MethodPost, "/games/"+sessionID+"/war", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (t *Transport) EndWar(ctx context.Context, sessionID string, req api.WarRequest) (*api.GameInfo, error) {
	var resp api.GameInfo
	if err := t.do(ctx, http.MethodDelete, "/games/"+sessionID+"/war", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
