package recommender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	commonhttp "car-recommender/internal/common/http"
	"car-recommender/internal/common/validation"
	"car-recommender/internal/models"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// responseSchema is the success body contract of the recommendation service.
const responseSchema = `{
  "type": "object",
  "required": ["recommendations"],
  "properties": {
    "recommendations": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "label", "score", "price", "insuranceEstimate"],
        "properties": {
          "id":                {"type": "integer"},
          "label":             {"type": "string"},
          "score":             {"type": "number"},
          "price":             {"type": "number"},
          "insuranceEstimate": {"type": "number"}
        }
      }
    }
  }
}`

var responseValidator = validation.MustNewValidator(responseSchema)

// Logger interface definition
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Recommender performs one recommendation round trip.
type Recommender interface {
	Recommend(ctx context.Context, requestID string, q models.Query) ([]models.Recommendation, error)
}

// Client talks to the recommendation service over HTTP.
type Client struct {
	config *Config
	http   *commonhttp.Client
	logger Logger
}

func NewClient(config *Config, log Logger) *Client {
	return &Client{
		config: config,
		http:   commonhttp.NewClient(config.Timeout).WithRateLimit(config.RateLimit, config.Burst),
		logger: log,
	}
}

// Recommend sends q as a single POST and decodes the ordered list of
// recommendations. Blank questions fail with *ValidationError before any
// request is made; other failures are *TransportError, *ServiceError or
// *ParseError.
func (c *Client) Recommend(ctx context.Context, requestID string, q models.Query) ([]models.Recommendation, error) {
	if q.IsBlank() {
		return nil, &ValidationError{Field: "question", Reason: "must not be empty"}
	}

	body, err := json.Marshal(q)
	if err != nil {
		return nil, &ValidationError{Field: "question", Reason: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Endpoint: c.config.Endpoint, Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if requestID != "" {
		req.Header.Set(commonhttp.RequestIDHeader, requestID)
	}

	c.logger.Debug("sending recommendation request", map[string]interface{}{
		"requestId": requestID,
		"endpoint":  c.config.Endpoint,
		"question":  q.Question,
	})

	payload, status, err := c.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}

	if status < 200 || status > 299 {
		return nil, &ServiceError{StatusCode: status, Detail: serviceDetail(payload)}
	}

	return decodeRecommendations(payload)
}

// Health checks the service's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	if c.config.HealthEndpoint == "" {
		return &TransportError{Endpoint: c.config.Endpoint, Cause: errors.New("no health endpoint configured")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.HealthEndpoint, nil)
	if err != nil {
		return &TransportError{Endpoint: c.config.HealthEndpoint, Cause: err}
	}
	req.Header.Set("Accept", "application/json")

	payload, status, err := c.roundTrip(ctx, req)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return &ServiceError{StatusCode: status, Detail: serviceDetail(payload)}
	}

	var health models.HealthResponse
	if err := json.Unmarshal(payload, &health); err != nil {
		return &ParseError{Cause: err}
	}
	if health.Status != "healthy" {
		return &ParseError{Cause: fmt.Errorf("unexpected health status %q", health.Status)}
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, req *http.Request) ([]byte, int, error) {
	endpoint := req.URL.String()

	resp, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		return nil, 0, &TransportError{Endpoint: endpoint, Cause: err, Timeout: isTimeout(ctx, err)}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, &TransportError{Endpoint: endpoint, Cause: err, Timeout: isTimeout(ctx, err)}
	}
	return payload, resp.StatusCode, nil
}

func decodeRecommendations(payload []byte) ([]models.Recommendation, error) {
	if err := responseValidator.ValidateBytes(payload); err != nil {
		return nil, &ParseError{Cause: err}
	}

	var out models.RecommendationResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, &ParseError{Cause: err}
	}
	return out.Recommendations, nil
}

// serviceDetail extracts {"error": "..."} from a failure body, if present.
func serviceDetail(payload []byte) string {
	var body models.ServiceErrorResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	return body.Error
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
