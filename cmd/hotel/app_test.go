package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/hotel-booking/internal/application"
	"github.com/example/hotel-booking/internal/config"
)

type apiClient struct {
	t      *testing.T
	server *httptest.Server
}

func (c apiClient) do(method, path, token string, body any) (int, map[string]json.RawMessage) {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, c.server.URL+path, reader)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.server.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	envelope := map[string]json.RawMessage{}
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&envelope))
	}
	return resp.StatusCode, envelope
}

func (c apiClient) login(email, password string) string {
	c.t.Helper()
	status, envelope := c.do(http.MethodPost, "/login", "", map[string]string{"email": email, "password": password})
	require.Equal(c.t, http.StatusOK, status, string(envelope["error"]))

	var auth struct {
		Token string `json:"token"`
	}
	require.NoError(c.t, json.Unmarshal(envelope["data"], &auth))
	require.NotEmpty(c.t, auth.Token)
	return auth.Token
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		HTTPPort:    0,
		SQLiteDSN:   filepath.Join(t.TempDir(), "hotel.db"),
		LogLevel:    "info",
		TimeZone:    time.UTC,
		TokenSecret: "test-secret-0123456789",
		TokenTTL:    time.Hour,
		RateLimit:   config.RateLimitConfig{Capacity: 10, RefillInterval: time.Minute},
		AMQPQueue:   "hotel.reservations",
	}
}

func startApp(t *testing.T, cfg config.Config) (*app, apiClient) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := newApp(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	server := httptest.NewServer(a.Handler)
	t.Cleanup(server.Close)
	return a, apiClient{t: t, server: server}
}

func TestApp_BookingFlow(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.RedisURL = "redis://" + mr.Addr()

	a, client := startApp(t, cfg)
	ctx := context.Background()

	_, err := a.Accounts.BootstrapAdmin(ctx, application.BootstrapAdminParams{
		Email:    "admin@example.com",
		Password: "admin-secret",
		Name:     "Admin",
	})
	require.NoError(t, err)
	adminToken := client.login("admin@example.com", "admin-secret")

	status, envelope := client.do(http.MethodPost, "/rooms", adminToken, map[string]any{
		"number":     "101",
		"type":       "double",
		"priceCents": 12000,
		"capacity":   2,
		"amenities":  []string{"wifi"},
	})
	require.Equal(t, http.StatusCreated, status, string(envelope["error"]))
	var room struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(envelope["data"], &room))
	require.NotEmpty(t, room.ID)
	assert.Equal(t, "available", room.Status)

	status, envelope = client.do(http.MethodPost, "/register", "", map[string]string{
		"email":    "guest@example.com",
		"password": "guest-secret",
		"name":     "Guest",
	})
	require.Equal(t, http.StatusCreated, status, string(envelope["error"]))
	guestToken := client.login("guest@example.com", "guest-secret")

	checkIn := time.Now().UTC().AddDate(0, 0, 10).Format("2006-01-02")
	checkOut := time.Now().UTC().AddDate(0, 0, 13).Format("2006-01-02")
	overlapOut := time.Now().UTC().AddDate(0, 0, 11).Format("2006-01-02")

	status, envelope = client.do(http.MethodPost, "/reservations", guestToken, map[string]any{
		"roomId":   room.ID,
		"checkIn":  checkIn,
		"checkOut": checkOut,
		"guests":   2,
	})
	require.Equal(t, http.StatusCreated, status, string(envelope["error"]))
	var reservation struct {
		ID         string `json:"id"`
		Nights     int    `json:"nights"`
		Status     string `json:"status"`
		TotalCents int64  `json:"totalCents"`
	}
	require.NoError(t, json.Unmarshal(envelope["data"], &reservation))
	assert.Equal(t, 3, reservation.Nights)
	assert.Equal(t, int64(36000), reservation.TotalCents)

	t.Run("availability reports the booking", func(t *testing.T) {
		status, envelope := client.do(http.MethodPost, "/check-room-availability", "", map[string]string{
			"roomId":   room.ID,
			"checkIn":  checkIn,
			"checkOut": overlapOut,
		})
		require.Equal(t, http.StatusOK, status)
		var result struct {
			Available        bool `json:"available"`
			ConflictingCount int  `json:"conflictingCount"`
		}
		require.NoError(t, json.Unmarshal(envelope["data"], &result))
		assert.False(t, result.Available)
		assert.Equal(t, 1, result.ConflictingCount)
	})

	t.Run("overlapping booking is rejected", func(t *testing.T) {
		status, envelope := client.do(http.MethodPost, "/reservations", guestToken, map[string]any{
			"roomId":   room.ID,
			"checkIn":  checkIn,
			"checkOut": overlapOut,
			"guests":   1,
		})
		require.Equal(t, http.StatusConflict, status)
		assert.Contains(t, string(envelope["error"]), "room_unavailable")
	})

	t.Run("guest sees the pending payment", func(t *testing.T) {
		status, envelope := client.do(http.MethodGet, "/payments", guestToken, nil)
		require.Equal(t, http.StatusOK, status, string(envelope["error"]))
		var payments []struct {
			ReservationID string `json:"reservationId"`
			Status        string `json:"status"`
		}
		require.NoError(t, json.Unmarshal(envelope["data"], &payments))
		require.Len(t, payments, 1)
		assert.Equal(t, reservation.ID, payments[0].ReservationID)
		assert.Equal(t, "pending", payments[0].Status)
	})

	t.Run("guest cannot manage rooms", func(t *testing.T) {
		status, _ := client.do(http.MethodDelete, "/rooms/"+room.ID, guestToken, nil)
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("cancel then logout", func(t *testing.T) {
		status, envelope := client.do(http.MethodPost, "/reservations/"+reservation.ID+"/cancel", guestToken, nil)
		require.Equal(t, http.StatusOK, status, string(envelope["error"]))

		status, _ = client.do(http.MethodPost, "/logout", guestToken, nil)
		require.Equal(t, http.StatusOK, status)

		status, envelope = client.do(http.MethodGet, "/me", guestToken, nil)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Contains(t, string(envelope["error"]), "session_revoked")
	})
}

func TestApp_LoginRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.RedisURL = "redis://" + mr.Addr()
	cfg.RateLimit = config.RateLimitConfig{Capacity: 2, RefillInterval: time.Hour}

	_, client := startApp(t, cfg)

	credentials := map[string]string{"email": "nobody@example.com", "password": "wrong-password"}
	for i := 0; i < 2; i++ {
		status, _ := client.do(http.MethodPost, "/login", "", credentials)
		require.Equal(t, http.StatusUnauthorized, status)
	}

	status, envelope := client.do(http.MethodPost, "/login", "", credentials)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Contains(t, string(envelope["error"]), "rate_limited")
}

func TestApp_WithoutRedis(t *testing.T) {
	_, client := startApp(t, testConfig(t))

	status, _ := client.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, envelope := client.do(http.MethodGet, "/rooms", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(envelope["data"]))

	for i := 0; i < 15; i++ {
		status, _ := client.do(http.MethodPost, "/login", "", map[string]string{"email": "x@example.com", "password": "wrong-password"})
		require.Equal(t, http.StatusUnauthorized, status)
	}
}

func TestNewApp_InvalidRedisURL(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisURL = "not a url"

	_, err := newApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
}
