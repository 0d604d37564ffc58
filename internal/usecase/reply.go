package usecase

import (
	"fmt"
	"strings"

	"tasting-log/internal/domain"
)

const (
	replySaved       = "Saved ✅"
	replySaveFailed  = "Failed to save ❌"
	replySaveError   = "An error occurred while saving."
	replyFormatError = "Format error: send %s name=... type=wine ... with at least a type."
	replyUsage       = "To record an entry: %[1]s name=... type=wine taste=8 tags=home\n" +
		"Example: %[1]s name=\"Ch. Margaux 2015\" type=wine taste=9 aroma=9 balance=9 tags=home,friends"
)

// Outcome is the terminal state of one event's pipeline. Record is only set
// for ValidCommand.
type Outcome struct {
	Kind   RecognitionKind
	Record domain.ParsedRecord
	Result domain.ForwardResult
}

// Composer turns pipeline outcomes into user-facing text.
type Composer struct {
	prefix string
}

func NewComposer(prefix string) *Composer {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultCommandPrefix
	}
	return &Composer{prefix: prefix}
}

func (c *Composer) Compose(o Outcome) string {
	switch o.Kind {
	case NotACommand:
		return fmt.Sprintf(replyUsage, c.prefix)
	case MalformedCommand:
		return fmt.Sprintf(replyFormatError, c.prefix)
	}

	switch o.Result.Status {
	case domain.ForwardAccepted:
		return withDetail(replySaved, o.Result.Message)
	case domain.ForwardRejected:
		return withDetail(replySaveFailed, o.Result.Message)
	default:
		return replySaveError
	}
}

func withDetail(head, detail string) string {
	detail = strings.TrimSpace(detail)
	if detail == "" {
		return head
	}
	return head + "\n" + detail
}
