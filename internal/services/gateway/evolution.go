package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/galihcitta/number-warming-service/internal/metrics"
	"github.com/galihcitta/number-warming-service/internal/models"
)

const (
	opSendText        = "send_text"
	opConnectionState = "connection_state"

	// maxErrorBody bounds how much of a failed response is kept as diagnostic.
	maxErrorBody = 2048
)

// SendResult is the normalized outcome of a delivery attempt. Exactly one of
// Data or Error is meaningful, depending on Success.
type SendResult struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type Options struct {
	Timeout       time.Duration
	DefaultRegion string
	RatePerSecond float64
	Burst         int
}

// EvolutionClient talks to the Evolution API on behalf of an instance. Each
// instance gets its own outbound limiter, keyed by routing name.
type EvolutionClient struct {
	httpClient *http.Client
	region     string
	limit      rate.Limit
	burst      int
	limiters   map[string]*rate.Limiter
	mu         sync.Mutex
	logger     *zap.Logger
}

func NewEvolutionClient(opts Options, logger *zap.Logger) *EvolutionClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}

	return &EvolutionClient{
		httpClient: &http.Client{Timeout: opts.Timeout},
		region:     opts.DefaultRegion,
		limit:      limit,
		burst:      opts.Burst,
		limiters:   make(map[string]*rate.Limiter),
		logger:     logger,
	}
}

func (c *EvolutionClient) getLimiter(instanceName string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	limiter, exists := c.limiters[instanceName]
	if !exists {
		limiter = rate.NewLimiter(c.limit, c.burst)
		c.limiters[instanceName] = limiter
	}
	return limiter
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

// SendText posts a text message from inst to number. It never returns an
// error: every failure mode is folded into the result.
func (c *EvolutionClient) SendText(ctx context.Context, inst *models.Instance, number, text string) SendResult {
	start := time.Now()
	result := c.sendText(ctx, inst, number, text)
	metrics.RecordGatewayRequest(opSendText, result.Success, time.Since(start).Seconds())

	if !result.Success {
		c.logger.Warn("Evolution API send failed",
			zap.String("instance", inst.Name),
			zap.String("error", result.Error))
	}
	return result
}

func (c *EvolutionClient) sendText(ctx context.Context, inst *models.Instance, number, text string) SendResult {
	if err := c.getLimiter(inst.Name).Wait(ctx); err != nil {
		return SendResult{Error: fmt.Sprintf("rate limit wait: %v", err)}
	}

	body, err := json.Marshal(sendTextRequest{
		Number: NormalizeNumber(number, c.region),
		Text:   text,
	})
	if err != nil {
		return SendResult{Error: fmt.Sprintf("failed to encode request: %v", err)}
	}

	endpoint := instanceURL(inst, "message/sendText")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return SendResult{Error: fmt.Sprintf("failed to build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", inst.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return SendResult{Error: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return SendResult{Error: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := strings.TrimSpace(string(raw))
		if len(detail) > maxErrorBody {
			detail = detail[:maxErrorBody]
		}
		return SendResult{Error: fmt.Sprintf("evolution api returned %d: %s", resp.StatusCode, detail)}
	}

	if json.Valid(raw) {
		return SendResult{Success: true, Data: raw}
	}

	wrapped, _ := json.Marshal(map[string]string{"raw": string(raw)})
	return SendResult{Success: true, Data: wrapped}
}

type connectionStateResponse struct {
	State    string `json:"state"`
	Instance struct {
		State string `json:"state"`
	} `json:"instance"`
}

// ConnectionState asks the gateway whether inst is logged in. A non-2xx
// answer maps to disconnected; transport failures are returned as errors.
func (c *EvolutionClient) ConnectionState(ctx context.Context, inst *models.Instance) (models.InstanceStatus, string, error) {
	start := time.Now()
	status, state, err := c.connectionState(ctx, inst)
	metrics.RecordGatewayRequest(opConnectionState, err == nil, time.Since(start).Seconds())
	if err == nil {
		metrics.IncrementStatusChecks(string(status))
	}
	return status, state, err
}

func (c *EvolutionClient) connectionState(ctx context.Context, inst *models.Instance) (models.InstanceStatus, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, instanceURL(inst, "instance/connectionState"), nil)
	if err != nil {
		return models.InstanceDisconnected, "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("apikey", inst.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.InstanceDisconnected, "", fmt.Errorf("failed to reach evolution api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.InstanceDisconnected, fmt.Sprintf("http %d", resp.StatusCode), nil
	}

	var payload connectionStateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.InstanceDisconnected, "", fmt.Errorf("failed to decode connection state: %w", err)
	}

	state := payload.State
	if state == "" {
		state = payload.Instance.State
	}
	return MapConnectionState(state), state, nil
}

// MapConnectionState converts a gateway state into an instance status.
func MapConnectionState(state string) models.InstanceStatus {
	switch state {
	case "open":
		return models.InstanceConnected
	case "connecting":
		return models.InstanceWarming
	default:
		return models.InstanceDisconnected
	}
}

func instanceURL(inst *models.Instance, operation string) string {
	return strings.TrimRight(inst.APIURL, "/") + "/" + operation + "/" + url.PathEscape(inst.Name)
}
