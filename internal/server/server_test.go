package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparshsam/wager-ai-assistant/internal/api"
	"github.com/sparshsam/wager-ai-assistant/internal/config"
	"github.com/sparshsam/wager-ai-assistant/internal/database"
	"github.com/sparshsam/wager-ai-assistant/internal/repository"
	"github.com/sparshsam/wager-ai-assistant/internal/service"
)

var serverTestCounter atomic.Int64

// newTestServer stands up the full API over an in-memory database, with the
// chat-completions endpoint stubbed. The stub answers the executor prompt
// with a JSON recommendation array and everything else with plain text.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	llmStub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		content := "KEY STATS:\nHome side unbeaten at home.\n\nMARKET:\nLine holding steady."
		if strings.Contains(string(body), "betting script executor") {
			content = `{"recommendations":[{"matchup":"Lakers vs Celtics","betType":"Moneyline","selection":"Lakers","oddsAmerican":"-110","stake":25,"confidence":8}]}`
		}

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(llmStub.Close)

	cfg := &config.Config{
		AbacusAPIKey:  "test-key",
		AbacusBaseURL: llmStub.URL,
		Model:         "gpt-4o-mini",
		DBPath:        fmt.Sprintf("file:server_test_%d?mode=memory&cache=shared", serverTestCounter.Add(1)),
		SessionSecret: "test-secret",
		SessionTTL:    time.Hour,
	}

	logger := zerolog.Nop()
	sqlDB, gormDB, err := database.New(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	users := repository.NewUserRepository(gormDB, logger)
	sessions := repository.NewSessionRepository(gormDB, logger)
	schedules := repository.NewScheduleRepository(gormDB, logger)
	scripts := repository.NewScriptRepository(gormDB, logger)
	picks := repository.NewPickRepository(gormDB, logger)
	bankroll := repository.NewBankrollRepository(gormDB, logger)
	uploads := repository.NewUploadRepository(gormDB, logger)

	llm := api.NewAbacusClient(cfg)

	srv := New(
		service.NewAuthService(cfg, users, sessions, logger),
		service.NewScheduleService(schedules, logger),
		service.NewScriptService(scripts, logger),
		service.NewAnalysisService(llm, logger),
		service.NewExecutionService(llm, logger),
		service.NewPickService(picks, users, bankroll, logger),
		service.NewUploadService(uploads, logger),
		llm,
		logger,
	)

	mux := http.NewServeMux()
	srv.Register(mux)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, token string, payload any) (*http.Response, map[string]any) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func signupToken(t *testing.T, ts *httptest.Server, email string) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/auth/signup", "", map[string]string{
		"email":    email,
		"password": "hunter2hunter2",
		"name":     "Test Bettor",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestServer_AuthFlow(t *testing.T) {
	ts := newTestServer(t)

	t.Run("health is public", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodGet, ts.URL+"/healthz", "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("protected routes reject missing token", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/schedules", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Unauthorized", body["error"])
	})

	t.Run("signup then login", func(t *testing.T) {
		signupToken(t, ts, "flow@example.com")

		resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/auth/login", "", map[string]string{
			"email":    "flow@example.com",
			"password": "hunter2hunter2",
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, body["token"])
	})

	t.Run("bad credentials", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/auth/login", "", map[string]string{
			"email":    "flow@example.com",
			"password": "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("logout invalidates token", func(t *testing.T) {
		token := signupToken(t, ts, "logout@example.com")

		resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/auth/logout", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/schedules", token, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestServer_ScheduleEndpoints(t *testing.T) {
	ts := newTestServer(t)
	token := signupToken(t, ts, "schedules@example.com")

	var scheduleID string

	t.Run("create", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/schedules", token, map[string]string{
			"homeTeam": "Lakers",
			"awayTeam": "Celtics",
			"league":   "NBA",
			"date":     "2026-09-15",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		scheduleID, _ = body["id"].(string)
		require.NotEmpty(t, scheduleID)
	})

	t.Run("validation error surfaces message", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/schedules", token, map[string]string{
			"homeTeam": "Lakers",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Missing required fields", body["error"])
	})

	t.Run("list with stats", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/schedules", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		stats, ok := body["stats"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, float64(1), stats["totalSchedules"])
	})

	t.Run("update", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPut, ts.URL+"/api/schedules/"+scheduleID, token, map[string]string{
			"status": "Completed",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Completed", body["status"])
	})

	t.Run("delete unknown id", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodDelete, ts.URL+"/api/schedules/nope", token, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("batch upload reports row errors", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/schedules/upload", token, map[string]any{
			"fileName": "sched.xlsx",
			"rows": []map[string]string{
				{"date": "2026-09-20", "homeTeam": "Heat", "awayTeam": "Bulls", "league": "NBA"},
				{"date": "2026-09-21", "homeTeam": "", "awayTeam": "Knicks", "league": "NBA"},
			},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(2), body["totalRows"])
		assert.Equal(t, float64(1), body["successfulRows"])
	})
}

func TestServer_ScriptAndAnalysisEndpoints(t *testing.T) {
	ts := newTestServer(t)
	token := signupToken(t, ts, "scripts@example.com")

	t.Run("script upload and re-upload", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/scripts/upload", token, map[string]string{
			"fileName": "nba.txt",
			"league":   "NBA",
			"content":  "bet home favorites",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, false, body["updated"])

		resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/scripts/upload", token, map[string]string{
			"fileName": "nba-v2.txt",
			"league":   "NBA",
			"content":  "bet road dogs",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["updated"])

		script, ok := body["script"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "1.1", script["version"])
	})

	t.Run("validate preview", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/validate-preview", token, map[string]string{
			"preview": "Starting center has an injury, listed as doubtful.",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["detected"])
		assert.Equal(t, float64(40), body["confidence"])
	})

	t.Run("generate cis", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/generate-cis", token, map[string]any{
			"selectedMatches": []map[string]any{
				{"matchup": "Lakers vs Celtics", "league": "NBA", "date": "2026-09-15"},
			},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["success"])
		assert.NotEmpty(t, body["cis"])
		assert.NotEmpty(t, body["sections"])
	})

	t.Run("execute betting script", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/execute-betting-script", token, map[string]any{
			"selectedMatches": []map[string]any{
				{"matchup": "Lakers vs Celtics", "league": "NBA", "sport": "NBA", "date": "2026-09-15"},
			},
			"cisAnalysis": "Full analysis text",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["success"])

		recs, ok := body["recommendations"].([]any)
		require.True(t, ok)
		require.Len(t, recs, 1)
		rec := recs[0].(map[string]any)
		assert.Equal(t, "Lakers vs Celtics", rec["matchup"])
		assert.InDelta(t, 22.727272, rec["potentialWin"].(float64), 1e-4)
	})

	t.Run("execute accepts object-shaped rules", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/execute-betting-script", token, map[string]any{
			"selectedMatches": []map[string]any{
				{
					"matchup":     "Lakers vs Celtics",
					"league":      "NBA",
					"scriptRules": []any{map[string]any{"rule": "Bet home favorites"}, "Skip back-to-backs"},
				},
			},
			"cisAnalysis": "Full analysis text",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["success"])
	})

	t.Run("execute without cis", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/execute-betting-script", token, map[string]any{
			"selectedMatches": []map[string]any{{"matchup": "A vs B"}},
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestServer_PickEndpoints(t *testing.T) {
	ts := newTestServer(t)
	token := signupToken(t, ts, "picks@example.com")

	var pickID string

	t.Run("log pick", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/log-pick", token, map[string]any{
			"sport":        "NBA",
			"league":       "NBA",
			"event":        "Lakers vs Celtics",
			"betType":      "Moneyline",
			"selection":    "Lakers",
			"oddsAmerican": "-110",
			"stake":        25,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "Pending", body["result"])
		pickID, _ = body["id"].(string)
		require.NotEmpty(t, pickID)
	})

	t.Run("settle win updates bankroll", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPut, ts.URL+"/api/picks/"+pickID, token, map[string]any{
			"result":          "Win",
			"profitLoss":      25,
			"runningBankroll": 1025,
			"bankrollChange":  25,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Win", body["result"])

		resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/picks", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		stats := body["stats"].(map[string]any)
		assert.Equal(t, float64(1025), stats["currentBankroll"])
		assert.Equal(t, float64(1), stats["wonPicks"])
	})

	t.Run("bankroll history", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/bankroll/history", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var entries []map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
		require.Len(t, entries, 2)

		types := []string{entries[0]["changeType"].(string), entries[1]["changeType"].(string)}
		assert.Contains(t, types, "Bet_Placed")
		assert.Contains(t, types, "Bet_Win")
	})

	t.Run("delete pick", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodDelete, ts.URL+"/api/picks/"+pickID, token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/picks/"+pickID, token, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
