package handler

import (
	"net/http/httptest"
	"testing"
	"time"

	"market-insight-be/internal/pkg/logger"
	internalWS "market-insight-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeWsHandshake(t *testing.T) {
	t.Setenv("JWT_SECRET", "stream-secret")
	hub := internalWS.NewHub(nil, logger.NewNopLogger())
	go hub.Run()
	t.Cleanup(func() { _ = hub.Close() })

	app := fiber.New()
	NewNoticeStreamHandler(hub, logger.NewNopLogger()).RegisterRoutes(app.Group("/api"))

	valid, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("stream-secret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		code   int
	}{
		{name: "missing token", path: "/api/ws/notices", code: fiber.StatusUnauthorized},
		{name: "bad token", path: "/api/ws/notices?token=nope", code: fiber.StatusUnauthorized},
		{name: "query token without upgrade", path: "/api/ws/notices?token=" + valid, code: fiber.StatusUpgradeRequired},
		{name: "header token without upgrade", path: "/api/ws/notices", header: "Bearer " + valid, code: fiber.StatusUpgradeRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode)
		})
	}
}
