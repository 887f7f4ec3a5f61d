package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andresmonc/polyempire-sub000/internal/engine"
	"github.com/andresmonc/polyempire-sub000/internal/network"
	"github.com/andresmonc/polyempire-sub000/pkg/api"
)

func newTestServer(t *testing.T) (*httptest.Server, *engine.GameService) {
	t.Helper()
	svc := engine.NewGameService(engine.DefaultConfig(), network.NewHub(), nil)
	srv := httptest.NewServer(New(svc, "0").Handler())
	t.Cleanup(srv.Close)
	return srv, svc
}

func postJSON(t *testing.T, url string, body, dst any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp
}

func getJSON(t *testing.T, url string, dst any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp
}

func TestCreateJoinAndFetchGame(t *testing.T) {
	srv, _ := newTestServer(t)

	var created api.CreateGameResponse
	resp := postJSON(t, srv.URL+"/games", api.CreateGameRequest{
		Name: "duel", PlayerName: "alice", CivID: "rome",
	}, &created)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	if created.SessionID == "" || created.PlayerID == 0 {
		t.Fatalf("incomplete create response: %+v", created)
	}

	var joined api.JoinGameResponse
	resp = postJSON(t, srv.URL+"/games/"+created.SessionID+"/join", api.JoinGameRequest{
		PlayerName: "bob", CivID: "egypt",
	}, &joined)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join status = %d, want 200", resp.StatusCode)
	}
	if joined.Game.Status != "active" {
		t.Errorf("status = %q, want active", joined.Game.Status)
	}

	var info api.GameInfo
	resp = getJSON(t, srv.URL+"/games/"+created.SessionID, &info)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", resp.StatusCode)
	}
	if len(info.Players) != 2 {
		t.Errorf("players = %d, want 2", len(info.Players))
	}
	if info.IsSequentialMode {
		t.Error("peaceful session must report simultaneous mode")
	}
}

func TestGetGameNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	var apiErr api.ErrorResponse
	resp := getJSON(t, srv.URL+"/games/missing", &apiErr)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if apiErr.Error != "Game not found" {
		t.Errorf("error = %q", apiErr.Error)
	}
}

func TestSubmitActionEnvelope(t *testing.T) {
	srv, _ := newTestServer(t)

	var created api.CreateGameResponse
	postJSON(t, srv.URL+"/games", api.CreateGameRequest{Name: "g", PlayerName: "alice", CivID: "rome"}, &created)
	var joined api.JoinGameResponse
	postJSON(t, srv.URL+"/games/"+created.SessionID+"/join", api.JoinGameRequest{PlayerName: "bob", CivID: "egypt"}, &joined)

	actionsURL := srv.URL + "/games/" + created.SessionID + "/actions"

	// Успех: обычный конверт
	var ok api.SubmitActionResponse
	resp := postJSON(t, actionsURL, api.SubmitActionRequest{
		PlayerID: created.PlayerID,
		Intent:   api.Intent{Type: api.IntentEndTurn},
	}, &ok)
	if resp.StatusCode != http.StatusOK || !ok.Success {
		t.Fatalf("success envelope: status=%d success=%v", resp.StatusCode, ok.Success)
	}

	// Отказ: тот же конверт с success:false и статусом ошибки
	var rejected api.SubmitActionResponse
	resp = postJSON(t, actionsURL, api.SubmitActionRequest{
		PlayerID: joined.PlayerID,
		Intent:   api.Intent{Type: api.IntentEndTurn},
	}, &rejected)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("rejection status = %d, want 403", resp.StatusCode)
	}
	if rejected.Success || rejected.Error == "" {
		t.Errorf("rejection envelope = %+v", rejected)
	}
}

func TestStatePolling(t *testing.T) {
	srv, _ := newTestServer(t)

	var created api.CreateGameResponse
	postJSON(t, srv.URL+"/games", api.CreateGameRequest{Name: "g", PlayerName: "alice", CivID: "rome"}, &created)

	var state api.StateResponse
	resp := getJSON(t, srv.URL+"/games/"+created.SessionID+"/state", &state)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("state status = %d", resp.StatusCode)
	}
	if state.FullState == nil || len(state.FullState.Entities) != 1 {
		t.Fatalf("first poll must carry the snapshot: %+v", state.FullState)
	}

	// Инкрементальный опрос по свежей отметке: пусто и без снимка
	var next api.StateResponse
	getJSON(t, srv.URL+"/games/"+created.SessionID+"/state?since="+state.Timestamp, &next)
	if next.FullState != nil {
		t.Error("incremental poll must not carry the snapshot")
	}
	if len(next.Actions) != 0 {
		t.Errorf("actions = %d, want 0", len(next.Actions))
	}

	var bad api.ErrorResponse
	resp = getJSON(t, srv.URL+"/games/"+created.SessionID+"/state?since=garbage", &bad)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("garbage since status = %d, want 400", resp.StatusCode)
	}
}

func TestWarEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	var created api.CreateGameResponse
	postJSON(t, srv.URL+"/games", api.CreateGameRequest{Name: "g", PlayerName: "alice", CivID: "rome"}, &created)
	var joined api.JoinGameResponse
	postJSON(t, srv.URL+"/games/"+created.SessionID+"/join", api.JoinGameRequest{PlayerName: "bob", CivID: "egypt"}, &joined)

	warURL := srv.URL + "/games/" + created.SessionID + "/war"

	var info api.GameInfo
	resp := postJSON(t, warURL, api.WarRequest{Player1ID: created.PlayerID, Player2ID: joined.PlayerID}, &info)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("declare status = %d", resp.StatusCode)
	}
	if !info.IsSequentialMode || len(info.Wars) != 1 {
		t.Errorf("after declare: sequential=%v wars=%d", info.IsSequentialMode, len(info.Wars))
	}

	req, err := http.NewRequest(http.MethodDelete, warURL, bytes.NewReader(mustMarshal(t, api.WarRequest{
		Player1ID: joined.PlayerID, Player2ID: created.PlayerID,
	})))
	if err != nil {
		t.Fatalf("build DELETE: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	dresp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE war: %v", err)
	}
	defer dresp.Body.Close()

	var after api.GameInfo
	if err := json.NewDecoder(dresp.Body).Decode(&after); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if after.IsSequentialMode || len(after.Wars) != 0 {
		t.Errorf("after end: sequential=%v wars=%d", after.IsSequentialMode, len(after.Wars))
	}
}

func TestHealthAndDebugEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	var created api.CreateGameResponse
	postJSON(t, srv.URL+"/games", api.CreateGameRequest{Name: "g", PlayerName: "alice", CivID: "rome"}, &created)

	var sessions []api.GameInfo
	getJSON(t, srv.URL+"/debug/sessions", &sessions)
	if len(sessions) != 1 {
		t.Errorf("debug sessions = %d, want 1", len(sessions))
	}

	var entities []api.EntityState
	getJSON(t, srv.URL+"/debug/entities?session="+created.SessionID, &entities)
	if len(entities) != 1 {
		t.Errorf("debug entities = %d, want 1", len(entities))
	}

	var turn struct {
		Turn            int    `json:"turn"`
		Mode            string `json:"mode"`
		CurrentPlayerID int64  `json:"currentPlayerId"`
	}
	getJSON(t, srv.URL+"/debug/turn?session="+created.SessionID, &turn)
	if turn.Turn != 1 || turn.Mode != "simultaneous" {
		t.Errorf("debug turn = %+v, want turn 1 simultaneous", turn)
	}
	if turn.CurrentPlayerID != created.PlayerID {
		t.Errorf("debug currentPlayerId = %d, want %d", turn.CurrentPlayerID, created.PlayerID)
	}

	missing, err := http.Get(srv.URL + "/debug/turn?session=nope")
	if err != nil {
		t.Fatalf("GET /debug/turn: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("unknown session status = %d, want 404", missing.StatusCode)
	}
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	buf, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return buf
}
