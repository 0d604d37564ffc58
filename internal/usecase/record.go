package usecase

import (
	"time"

	"tasting-log/internal/domain"
)

// timestampLayout matches JavaScript's Date.toISOString, which the record
// store already expects.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// BuildRecord attaches the capture time and originating user to a parsed
// record. The parsed map is copied so the result is independent of it.
func BuildRecord(parsed domain.ParsedRecord, now time.Time, userID string) domain.EnrichedRecord {
	fields := make(domain.ParsedRecord, len(parsed))
	for k, v := range parsed {
		fields[k] = v
	}
	return domain.EnrichedRecord{
		Fields:    fields,
		Timestamp: now.UTC().Format(timestampLayout),
		UserID:    userID,
	}
}
