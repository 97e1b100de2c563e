package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/galihcitta/number-warming-service/internal/config"
	"github.com/galihcitta/number-warming-service/internal/middleware"
	"github.com/galihcitta/number-warming-service/internal/models"
)

func newTestServer() *Server {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	cfg := &config.Config{Server: config.ServerConfig{RatePerSecond: 1000, Burst: 1000}}

	warming := NewMockWarming()
	library := NewMockLibrary()
	server := NewServer(cfg, middleware.NewJWTAuth("secret", false), Handlers{
		Tenants:       NewTenantHandler(NewMockTenantManager(), logger),
		Warming:       NewWarmingHandler(warming, warming, logger),
		Instances:     NewInstanceHandler(NewMockInstanceStore(), &MockStatusChecker{}, logger),
		Messages:      NewMessageHandler(templateStore{library}, logger),
		ClientNumbers: NewClientNumberHandler(clientStore{library}, logger),
		Config:        NewConfigHandler(&MockConfigStore{configs: map[uuid.UUID]models.WarmingConfig{}}, logger),
		Webhook:       NewWebhookHandler(&MockProcessor{}, nil, "webhook_events", denyAll{}, logger),
	}, logger)
	server.SetupRoutes()
	return server
}

func TestServer_ServesSwaggerDocument(t *testing.T) {
	router := newTestServer().GetRouter()

	w := performRequest(router, http.MethodGet, "/swagger/doc.json", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "/warming/start")
	assert.Contains(t, body, "/warming/diagnostics")
	assert.Contains(t, body, "models.WarmingConfig")
}

func TestServer_RoutesTenantRequests(t *testing.T) {
	router := newTestServer().GetRouter()

	w := performRequest(router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/warming/status", nil)
	req.Header.Set("X-Tenant-ID", uuid.New().String())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"isActive":false,"startedAt":null,"nextCycleAt":null}`, rec.Body.String())

	w = performRequest(router, http.MethodGet, "/api/v1/tenants", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
