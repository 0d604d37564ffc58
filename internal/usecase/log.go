package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tasting-log/internal/domain"
	"tasting-log/internal/logging"
)

// Forwarder submits a record to the record store. It reports failures in the
// result instead of returning an error.
type Forwarder interface {
	Forward(ctx context.Context, rec domain.EnrichedRecord) domain.ForwardResult
}

// Replier sends a text reply into the conversation identified by replyToken.
type Replier interface {
	Reply(ctx context.Context, replyToken, text string) error
}

// LogService runs the /log pipeline for a single event.
type LogService struct {
	recognizer *Recognizer
	composer   *Composer
	forwarder  Forwarder
	replier    Replier
	now        func() time.Time
}

func NewLogService(f Forwarder, r Replier, commandPrefix string) (*LogService, error) {
	if f == nil {
		return nil, errors.New("usecase: forwarder must not be nil")
	}
	if r == nil {
		return nil, errors.New("usecase: replier must not be nil")
	}
	return &LogService{
		recognizer: NewRecognizer(commandPrefix),
		composer:   NewComposer(commandPrefix),
		forwarder:  f,
		replier:    r,
		now:        time.Now,
	}, nil
}

// Process classifies the text and, for a valid command, forwards the record.
// The forwarder is not called for anything else.
func (s *LogService) Process(ctx context.Context, text, userID string) Outcome {
	rec := s.recognizer.Recognize(text)
	if rec.Kind != ValidCommand {
		return Outcome{Kind: rec.Kind}
	}

	enriched := BuildRecord(rec.Record, s.now(), userID)
	result := s.forwarder.Forward(ctx, enriched)
	return Outcome{Kind: ValidCommand, Record: rec.Record, Result: result}
}

// HandleEvent processes one text message event and sends exactly one reply.
// Non-text events are ignored.
func (s *LogService) HandleEvent(ctx context.Context, ev domain.Event) error {
	if !ev.IsTextMessage() {
		return nil
	}

	outcome := s.Process(ctx, ev.Text(), ev.UserID())
	logger := logging.FromContext(ctx)
	if outcome.Kind == ValidCommand {
		logger.InfoContext(ctx, "record forwarded",
			"outcome", outcome.Kind.String(),
			"status", outcome.Result.Status.String(),
			"record", FormatRecord(outcome.Record),
		)
	} else {
		logger.InfoContext(ctx, "message not forwarded", "outcome", outcome.Kind.String())
	}

	if err := s.replier.Reply(ctx, ev.ReplyToken, s.composer.Compose(outcome)); err != nil {
		return fmt.Errorf("usecase: send reply: %w", err)
	}
	return nil
}
