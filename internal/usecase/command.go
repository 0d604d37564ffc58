package usecase

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"tasting-log/internal/domain"
)

const DefaultCommandPrefix = "/log"

// pairPattern matches key=value where value is a non-empty quoted string or a
// run of characters that are neither whitespace nor quotes. The excluded set
// matches unicode.IsSpace, so ideographic and no-break spaces separate pairs.
var pairPattern = regexp.MustCompile(`([A-Za-z0-9_]+)=("[^"]+"|[^"\s\x{0B}\x{85}\p{Z}]+)`)

// Tokenize extracts key=value pairs from command text. Tokens that do not
// match are skipped, so the result is never nil and may be empty.
func Tokenize(text string) domain.ParsedRecord {
	out := domain.ParsedRecord{}
	for _, pair := range pairPattern.FindAllString(text, -1) {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		out[strings.ToLower(key)] = unquote(value)
	}
	return out
}

func unquote(v string) string {
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		return v[1 : len(v)-1]
	}
	return v
}

// FormatRecord renders a record back into command arguments with keys in
// sorted order. Tokenize(FormatRecord(r)) yields r for any tokenized r.
func FormatRecord(r domain.ParsedRecord) string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := r[k]
		if strings.ContainsFunc(v, unicode.IsSpace) {
			v = `"` + v + `"`
		}
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, " ")
}

// RecognitionKind is the classification of an inbound chat message.
type RecognitionKind int

const (
	NotACommand RecognitionKind = iota
	MalformedCommand
	ValidCommand
)

func (k RecognitionKind) String() string {
	switch k {
	case MalformedCommand:
		return "malformed_command"
	case ValidCommand:
		return "valid_command"
	default:
		return "not_a_command"
	}
}

// Recognition is the result of classifying a message. Record is only set for
// ValidCommand.
type Recognition struct {
	Kind   RecognitionKind
	Record domain.ParsedRecord
}

// Recognizer classifies message text against a command prefix.
type Recognizer struct {
	prefix string
}

func NewRecognizer(prefix string) *Recognizer {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultCommandPrefix
	}
	return &Recognizer{prefix: prefix}
}

func (r *Recognizer) Recognize(text string) Recognition {
	text = strings.TrimSpace(text)
	if len(text) < len(r.prefix) || !strings.EqualFold(text[:len(r.prefix)], r.prefix) {
		return Recognition{Kind: NotACommand}
	}

	rest := text[len(r.prefix):]
	// The prefix must stand alone: "/logtype=wine" is a mistyped command.
	if first, _ := utf8.DecodeRuneInString(rest); rest != "" && !unicode.IsSpace(first) {
		return Recognition{Kind: MalformedCommand}
	}

	record := Tokenize(strings.TrimSpace(rest))
	if strings.TrimSpace(record[domain.FieldType]) == "" {
		return Recognition{Kind: MalformedCommand}
	}
	return Recognition{Kind: ValidCommand, Record: record}
}
