package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"market-insight-be/internal/dto"
	"market-insight-be/internal/entity"
	"market-insight-be/internal/pkg/serverutils"
	"market-insight-be/internal/service"
	"market-insight-be/pkg/draftstore"
	"market-insight-be/pkg/strategy"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "controller-secret"

type stubStrategyService struct {
	owner   string
	token   string
	sorted  bool
	lastId  string
	patch   *dto.UpdateStrategyRequest
	created *dto.CreateStrategyRequest
	err     error
}

func (s *stubStrategyService) capture(ctx context.Context, owner string) {
	s.owner = owner
	s.token = draftstore.AuthToken(ctx)
}

func (s *stubStrategyService) Load(ctx context.Context, owner string, sortBySavedAt bool) ([]*dto.StrategyResponse, error) {
	s.capture(ctx, owner)
	s.sorted = sortBySavedAt
	return []*dto.StrategyResponse{{Id: "c1", Name: "A"}}, s.err
}

func (s *stubStrategyService) Generate(ctx context.Context, owner string, req *dto.GenerateStrategiesRequest) (*dto.GenerateStrategiesResponse, error) {
	s.capture(ctx, owner)
	if s.err != nil {
		return nil, s.err
	}
	return &dto.GenerateStrategiesResponse{Strategies: []*dto.StrategyResponse{{Id: "g1"}}, UsingFallback: true}, nil
}

func (s *stubStrategyService) Create(ctx context.Context, owner string, req *dto.CreateStrategyRequest) (*dto.StrategyResponse, error) {
	s.capture(ctx, owner)
	s.created = req
	return &dto.StrategyResponse{Id: "new", Name: req.Name}, s.err
}

func (s *stubStrategyService) SaveDraft(ctx context.Context, owner, clientId string, req *dto.UpdateStrategyRequest) (*dto.StrategyResponse, error) {
	s.capture(ctx, owner)
	s.lastId, s.patch = clientId, req
	return &dto.StrategyResponse{Id: clientId, Status: "Draft"}, s.err
}

func (s *stubStrategyService) Edit(ctx context.Context, owner, clientId string, req *dto.UpdateStrategyRequest) (*dto.StrategyResponse, error) {
	s.capture(ctx, owner)
	s.lastId, s.patch = clientId, req
	return &dto.StrategyResponse{Id: clientId}, s.err
}

func (s *stubStrategyService) Implement(ctx context.Context, owner, clientId string) (*dto.StrategyResponse, error) {
	s.capture(ctx, owner)
	s.lastId = clientId
	if s.err != nil {
		return nil, s.err
	}
	return &dto.StrategyResponse{Id: clientId, Status: "Active", Progress: 10}, nil
}

func (s *stubStrategyService) Delete(ctx context.Context, owner, clientId string) error {
	s.capture(ctx, owner)
	s.lastId = clientId
	return s.err
}

func (s *stubStrategyService) Inspect(context.Context, string) (*service.ReconcileReport, error) {
	return &service.ReconcileReport{}, nil
}

type stubNoticeService struct {
	notices []entity.Notice
}

func (s *stubNoticeService) Consume(context.Context) error { return nil }

func (s *stubNoticeService) List(_ context.Context, owner string) []entity.Notice {
	var out []entity.Notice
	for _, n := range s.notices {
		if n.Owner == owner {
			out = append(out, n)
		}
	}
	return out
}

func (s *stubNoticeService) Dismiss(_ context.Context, owner, id string) error {
	for _, n := range s.notices {
		if n.Owner == owner && n.Id == id {
			return nil
		}
	}
	return service.ErrNoticeNotFound
}

func newTestApp(t *testing.T, svc *stubStrategyService, notices *stubNoticeService) (*fiber.App, string) {
	t.Setenv("JWT_SECRET", testSecret)
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	NewStrategyController(svc, notices).RegisterRoutes(app.Group("/api"))

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return app, token
}

func call(t *testing.T, app *fiber.App, token, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var parsed map[string]any
	require.NoError(t, json.Unmarshal(raw, &parsed), string(raw))
	return resp.StatusCode, parsed
}

func TestRoutesRequireToken(t *testing.T) {
	app, _ := newTestApp(t, &stubStrategyService{}, &stubNoticeService{})

	code, body := call(t, app, "", "GET", "/api/strategy/v1", "")

	assert.Equal(t, fiber.StatusUnauthorized, code)
	assert.Equal(t, false, body["success"])
}

func TestGetAllForwardsOwnerAndToken(t *testing.T) {
	svc := &stubStrategyService{}
	app, token := newTestApp(t, svc, &stubNoticeService{})

	code, body := call(t, app, token, "GET", "/api/strategy/v1?sort=savedAt", "")

	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "u1", svc.owner)
	assert.Equal(t, token, svc.token)
	assert.True(t, svc.sorted)
	data := body["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "c1", data[0].(map[string]any)["id"])
}

func TestGenerateValidatesBody(t *testing.T) {
	app, token := newTestApp(t, &stubStrategyService{}, &stubNoticeService{})

	code, body := call(t, app, token, "POST", "/api/strategy/v1/generate", `{"dataName":"Sales"}`)
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Contains(t, body["message"], "DataId is required")

	code, body = call(t, app, token, "POST", "/api/strategy/v1/generate", `{"dataId":"d1"}`)
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, true, body["data"].(map[string]any)["usingFallback"])
}

func TestCreateReturnsCreated(t *testing.T) {
	svc := &stubStrategyService{}
	app, token := newTestApp(t, svc, &stubNoticeService{})

	code, _ := call(t, app, token, "POST", "/api/strategy/v1", `{"name":"Manual","type":"Rebrand"}`)
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, body := call(t, app, token, "POST", "/api/strategy/v1", `{"name":"Manual","type":"Launch","channels":["Email"]}`)
	assert.Equal(t, fiber.StatusCreated, code)
	assert.Equal(t, "Manual", body["data"].(map[string]any)["name"])
	require.NotNil(t, svc.created)
	assert.Equal(t, []string{"Email"}, svc.created.Channels)
}

func TestSaveDraftAndEditPassPatch(t *testing.T) {
	svc := &stubStrategyService{}
	app, token := newTestApp(t, svc, &stubNoticeService{})

	code, _ := call(t, app, token, "PUT", "/api/strategy/v1/c7", `{"name":"Renamed"}`)
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "c7", svc.lastId)
	require.NotNil(t, svc.patch.Name)
	assert.Equal(t, "Renamed", *svc.patch.Name)
	assert.Nil(t, svc.patch.Budget)

	code, _ = call(t, app, token, "PATCH", "/api/strategy/v1/c8", `{"budget":"Low"}`)
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "c8", svc.lastId)
	assert.Equal(t, "Low", *svc.patch.Budget)

	code, _ = call(t, app, token, "PATCH", "/api/strategy/v1/c8", `{"type":"Rebrand"}`)
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestImplementAndDelete(t *testing.T) {
	svc := &stubStrategyService{}
	app, token := newTestApp(t, svc, &stubNoticeService{})

	code, body := call(t, app, token, "POST", "/api/strategy/v1/c1/implement", "")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, float64(10), body["data"].(map[string]any)["progress"])

	code, _ = call(t, app, token, "DELETE", "/api/strategy/v1/c1", "")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "c1", svc.lastId)
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "not found", err: fmt.Errorf("%w: c1", strategy.ErrNotFound), code: fiber.StatusNotFound},
		{name: "remote rejected", err: &draftstore.Error{Kind: draftstore.KindRemoteRejected, Op: "delete draft", Status: 500, Body: "db down"}, code: fiber.StatusBadGateway},
		{name: "unexpected", err: errors.New("boom"), code: fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, token := newTestApp(t, &stubStrategyService{err: tt.err}, &stubNoticeService{})

			code, body := call(t, app, token, "DELETE", "/api/strategy/v1/c1", "")

			assert.Equal(t, tt.code, code)
			assert.Equal(t, false, body["success"])
		})
	}
}

func TestNoticesAreScopedToOwner(t *testing.T) {
	notices := &stubNoticeService{notices: []entity.Notice{
		{Id: "n1", Owner: "u1", Kind: entity.NoticePersistFailed, Message: "not saved", ClientId: "c1"},
		{Id: "n2", Owner: "u2", Kind: entity.NoticeFallbackUsed},
	}}
	app, token := newTestApp(t, &stubStrategyService{}, notices)

	code, body := call(t, app, token, "GET", "/api/strategy/v1/notices", "")
	assert.Equal(t, fiber.StatusOK, code)
	data := body["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "PERSIST_FAILED", data[0].(map[string]any)["kind"])

	code, _ = call(t, app, token, "DELETE", "/api/strategy/v1/notices/n1", "")
	assert.Equal(t, fiber.StatusOK, code)

	code, _ = call(t, app, token, "DELETE", "/api/strategy/v1/notices/n2", "")
	assert.Equal(t, fiber.StatusNotFound, code)
}
