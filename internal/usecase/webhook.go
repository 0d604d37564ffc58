package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"tasting-log/internal/domain"
	"tasting-log/internal/logging"
)

// SignatureVerifier checks the platform signature of a raw webhook body.
type SignatureVerifier interface {
	Verify(ctx context.Context, body []byte, signature string) (bool, error)
}

// EventLedger remembers webhook event ids. MarkProcessed returns false when
// the id was already recorded.
type EventLedger interface {
	MarkProcessed(ctx context.Context, eventID string) (bool, error)
}

type BatchDispatcher interface {
	Dispatch(ctx context.Context, events []domain.Event) DispatchReport
}

// WebhookService authenticates and decodes a webhook call and dispatches its
// events.
type WebhookService struct {
	verifier   SignatureVerifier
	dispatcher BatchDispatcher
}

func NewWebhookService(v SignatureVerifier, d BatchDispatcher) (*WebhookService, error) {
	if v == nil {
		return nil, errors.New("usecase: signature verifier must not be nil")
	}
	if d == nil {
		return nil, errors.New("usecase: dispatcher must not be nil")
	}
	return &WebhookService{verifier: v, dispatcher: d}, nil
}

// HandleWebhook returns an *Error only for failures before any event is read.
func (s *WebhookService) HandleWebhook(ctx context.Context, body []byte, signature string) (DispatchReport, error) {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return DispatchReport{}, newError(ErrorUnauthorized, "missing_signature", nil)
	}
	ok, err := s.verifier.Verify(ctx, body, signature)
	if err != nil {
		return DispatchReport{}, newError(ErrorInternal, "signature_secret_error", err)
	}
	if !ok {
		return DispatchReport{}, newError(ErrorUnauthorized, "invalid_signature", nil)
	}

	var payload domain.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return DispatchReport{}, newError(ErrorInvalidInput, "malformed_payload", err)
	}

	report := s.dispatcher.Dispatch(ctx, payload.Events)
	logging.FromContext(ctx).InfoContext(ctx, "webhook batch settled",
		"events", len(payload.Events),
		"handled", report.Handled,
		"ignored", report.Ignored,
		"failed", report.Failed,
	)
	return report, nil
}

// DedupHandler skips events whose webhook event id the ledger has already
// seen. Ledger errors are logged and the event is processed anyway.
type DedupHandler struct {
	ledger EventLedger
	next   EventHandler
}

func NewDedupHandler(l EventLedger, next EventHandler) (*DedupHandler, error) {
	if l == nil {
		return nil, errors.New("usecase: event ledger must not be nil")
	}
	if next == nil {
		return nil, errors.New("usecase: next handler must not be nil")
	}
	return &DedupHandler{ledger: l, next: next}, nil
}

func (h *DedupHandler) HandleEvent(ctx context.Context, ev domain.Event) error {
	if ev.WebhookEventID == "" {
		return h.next.HandleEvent(ctx, ev)
	}
	fresh, err := h.ledger.MarkProcessed(ctx, ev.WebhookEventID)
	if err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "event ledger unavailable", "err", err)
		return h.next.HandleEvent(ctx, ev)
	}
	if !fresh {
		logging.FromContext(ctx).InfoContext(ctx, "duplicate event skipped",
			"redelivery", ev.DeliveryContext.IsRedelivery,
		)
		return nil
	}
	return h.next.HandleEvent(ctx, ev)
}
