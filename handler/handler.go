package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"tasting-log/internal/logging"
	"tasting-log/internal/usecase"
)

const (
	headerCorrelationID = "X-Correlation-Id"
	headerSignature     = "X-Line-Signature"
)

type WebhookUseCase interface {
	HandleWebhook(ctx context.Context, body []byte, signature string) (usecase.DispatchReport, error)
}

type Handler struct {
	uc WebhookUseCase
}

type webhookResponse struct {
	Handled int `json:"handled"`
	Ignored int `json:"ignored"`
	Failed  int `json:"failed"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHandler(uc WebhookUseCase) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: webhook use case must not be nil")
	}
	return &Handler{uc: uc}, nil
}

// Handle is the API Gateway proxy entrypoint for LINE webhook calls.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := headerValue(req.Headers, headerCorrelationID)
	if correlationID == "" {
		correlationID = newCorrelationID()
	}
	ctx = logging.With(ctx, logging.CorrelationIDKey, correlationID)
	logger := logging.FromContext(ctx)

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			logger.WarnContext(ctx, "undecodable request body", "err", err)
			return jsonResponse(http.StatusBadRequest, correlationID, errorResponse{Error: string(usecase.ErrorInvalidInput)}), nil
		}
		body = decoded
	}

	report, err := h.uc.HandleWebhook(ctx, body, headerValue(req.Headers, headerSignature))
	if err != nil {
		status, code := mapError(err)
		if status >= http.StatusInternalServerError {
			logger.ErrorContext(ctx, "webhook failed", "err", err)
		} else {
			logger.WarnContext(ctx, "webhook rejected", "err", err)
		}
		return jsonResponse(status, correlationID, errorResponse{Error: code}), nil
	}

	return jsonResponse(http.StatusOK, correlationID, webhookResponse{
		Handled: report.Handled,
		Ignored: report.Ignored,
		Failed:  report.Failed,
	}), nil
}

func mapError(err error) (int, string) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError, string(usecase.ErrorInternal)
	}
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, string(ucErr.Code)
	case usecase.ErrorUnauthorized:
		return http.StatusUnauthorized, string(ucErr.Code)
	default:
		return http.StatusInternalServerError, string(usecase.ErrorInternal)
	}
}

func jsonResponse(status int, correlationID string, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"INTERNAL_ERROR"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":      "application/json",
			headerCorrelationID: correlationID,
		},
		Body: string(body),
	}
}

// headerValue looks a header up case-insensitively; API Gateway preserves the
// client's casing.
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return strings.TrimSpace(v)
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

var newCorrelationID = func() string {
	return uuid.NewString()
}
