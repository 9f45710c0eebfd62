package serverutils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"market-insight-be/pkg/draftstore"
	"market-insight-be/pkg/strategy"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "fiber error", err: fiber.NewError(fiber.StatusConflict, "taken"), code: fiber.StatusConflict},
		{name: "not found", err: fmt.Errorf("%w: c1", strategy.ErrNotFound), code: fiber.StatusNotFound},
		{name: "invalid record", err: fmt.Errorf("%w: missing name", strategy.ErrInvalidRecord), code: fiber.StatusBadRequest},
		{name: "store timeout", err: fmt.Errorf("delete: %w", &draftstore.Error{Kind: draftstore.KindTimeout, Op: "delete draft", Err: context.DeadlineExceeded}), code: fiber.StatusGatewayTimeout},
		{name: "store rejected", err: &draftstore.Error{Kind: draftstore.KindRemoteRejected, Op: "delete draft", Status: 500}, code: fiber.StatusBadGateway},
		{name: "other", err: errors.New("boom"), code: fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg := StatusFor(tt.err)
			assert.Equal(t, tt.code, code)
			assert.NotEmpty(t, msg)
		})
	}
}

type validated struct {
	Name string `validate:"required"`
	Type string `validate:"omitempty,oneof=Retention Launch Upsell"`
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(validated{Name: "x", Type: "Launch"}))

	err := ValidateRequest(validated{Type: "Rebrand"})
	var fe *fiber.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, fiber.StatusBadRequest, fe.Code)
	assert.Contains(t, fe.Message, "Name is required")
	assert.Contains(t, fe.Message, "Type must be one of")
}

func signedToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestJwtMiddleware(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	app := fiber.New()
	app.Get("/me", JwtMiddleware, func(ctx *fiber.Ctx) error {
		return ctx.SendString(ctx.Locals("user_id").(string) + "|" + ctx.Locals("auth_token").(string))
	})

	valid := signedToken(t, "test-secret", jwt.MapClaims{"user_id": "u1", "exp": time.Now().Add(time.Hour).Unix()})
	tests := []struct {
		name   string
		header string
		code   int
	}{
		{name: "valid", header: "Bearer " + valid, code: fiber.StatusOK},
		{name: "missing", header: "", code: fiber.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + signedToken(t, "other", jwt.MapClaims{"user_id": "u1"}), code: fiber.StatusUnauthorized},
		{name: "no user id", header: "Bearer " + signedToken(t, "test-secret", jwt.MapClaims{"sub": "u1"}), code: fiber.StatusUnauthorized},
		{name: "expired", header: "Bearer " + signedToken(t, "test-secret", jwt.MapClaims{"user_id": "u1", "exp": time.Now().Add(-time.Hour).Unix()}), code: fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode)

			if tt.code == fiber.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				assert.Equal(t, "u1|"+valid, string(body))
			}
		})
	}
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/missing", func(ctx *fiber.Ctx) error {
		return fmt.Errorf("%w: c9", strategy.ErrNotFound)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"success":false,"code":404,"message":"strategy not found: c9"}`, string(body))
}
