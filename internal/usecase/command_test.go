package usecase

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tasting-log/internal/domain"
)

func TestTokenize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want domain.ParsedRecord
	}{
		{name: "empty", in: "", want: domain.ParsedRecord{}},
		{name: "only noise", in: "hello there = \"x", want: domain.ParsedRecord{}},
		{name: "unquoted", in: "key=abc", want: domain.ParsedRecord{"key": "abc"}},
		{name: "quoted keeps whitespace", in: `key="a b c"`, want: domain.ParsedRecord{"key": "a b c"}},
		{name: "key lower-cased", in: "TYPE=wine", want: domain.ParsedRecord{"type": "wine"}},
		{name: "last key wins", in: "type=wine type=beer", want: domain.ParsedRecord{"type": "beer"}},
		{name: "case-insensitive duplicate", in: "Type=wine TYPE=sake", want: domain.ParsedRecord{"type": "sake"}},
		{name: "equals inside quotes", in: `note="a=b c"`, want: domain.ParsedRecord{"note": "a=b c"}},
		{name: "equals in unquoted value", in: "expr=a=b", want: domain.ParsedRecord{"expr": "a=b"}},
		{name: "stray tokens skipped", in: "foo type=wine =bar baz=", want: domain.ParsedRecord{"type": "wine"}},
		{name: "unterminated quote dropped", in: `name="Ch. Margaux type=wine`, want: domain.ParsedRecord{"type": "wine"}},
		{name: "empty quotes dropped", in: `name="" type=wine`, want: domain.ParsedRecord{"type": "wine"}},
		{name: "underscore and digits", in: "vintage_2=2015", want: domain.ParsedRecord{"vintage_2": "2015"}},
		{name: "multibyte value", in: `name="獺祭 二割三分" type=sake`, want: domain.ParsedRecord{"name": "獺祭 二割三分", "type": "sake"}},
		{name: "tabs and newlines", in: "type=wine\ttaste=8\naroma=7", want: domain.ParsedRecord{"type": "wine", "taste": "8", "aroma": "7"}},
		{name: "ideographic space", in: "type=wine\u3000taste=9", want: domain.ParsedRecord{"type": "wine", "taste": "9"}},
		{name: "no-break space", in: "type=wine\u00a0taste=9", want: domain.ParsedRecord{"type": "wine", "taste": "9"}},
		{name: "vertical tab and next line", in: "type=wine\vtaste=9\u0085aroma=7", want: domain.ParsedRecord{"type": "wine", "taste": "9", "aroma": "7"}},
		{name: "ideographic space inside quotes", in: "name=\"獺祭\u3000二割三分\" type=sake", want: domain.ParsedRecord{"name": "獺祭\u3000二割三分", "type": "sake"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Tokenize(tc.in))
		})
	}
}

func TestTokenize_NoQuotesRetained(t *testing.T) {
	got := Tokenize(`a="x" b="y z" c=w`)
	for k, v := range got {
		require.NotContains(t, v, `"`, "key %s", k)
	}
}

func TestFormatRecord_RoundTrip(t *testing.T) {
	inputs := []string{
		`name="Ch. Margaux 2015" type=wine taste=9 tags=home,friends`,
		`note="a=b c" TYPE=beer`,
		`type=sake name="獺祭 二割三分"`,
		"type=sake\u3000name=\"獺祭\u3000二割三分\"",
		``,
	}
	for _, in := range inputs {
		first := Tokenize(in)
		again := Tokenize(FormatRecord(first))
		require.Equal(t, first, again, "input %q", in)
	}
}

func TestFormatRecord_SortedAndQuoted(t *testing.T) {
	got := FormatRecord(domain.ParsedRecord{"type": "wine", "name": "Ch. Margaux"})
	require.Equal(t, `name="Ch. Margaux" type=wine`, got)
}

func TestRecognize(t *testing.T) {
	r := NewRecognizer("/log")
	cases := []struct {
		name string
		in   string
		want RecognitionKind
	}{
		{name: "plain chat", in: "hello there", want: NotACommand},
		{name: "empty", in: "", want: NotACommand},
		{name: "prefix later in text", in: "please /log type=wine", want: NotACommand},
		{name: "other command", in: "/help", want: NotACommand},
		{name: "bare prefix", in: "/log", want: MalformedCommand},
		{name: "bare prefix with spaces", in: "  /log   ", want: MalformedCommand},
		{name: "missing type", in: "/log name=Beer", want: MalformedCommand},
		{name: "glued prefix", in: "/logtype=wine", want: MalformedCommand},
		{name: "unterminated type value", in: `/log type="wine`, want: MalformedCommand},
		{name: "valid", in: "/log type=wine", want: ValidCommand},
		{name: "uppercase prefix", in: "/LOG type=wine", want: ValidCommand},
		{name: "uppercase key", in: "/Log TYPE=wine", want: ValidCommand},
		{name: "newline after prefix", in: "/log\ntype=wine", want: ValidCommand},
		{name: "ideographic space after prefix", in: "/log\u3000type=wine", want: ValidCommand},
		{name: "ideographic space before type", in: "/log name=x\u3000type=wine", want: ValidCommand},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := r.Recognize(tc.in)
			require.Equal(t, tc.want, got.Kind)
			if tc.want != ValidCommand {
				require.Nil(t, got.Record)
			}
		})
	}
}

func TestRecognize_ValidRecord(t *testing.T) {
	got := NewRecognizer("").Recognize(`/log name="Ch. Margaux 2015" type=wine taste=9 tags=home,friends`)
	require.Equal(t, ValidCommand, got.Kind)
	require.Equal(t, domain.ParsedRecord{
		"name":  "Ch. Margaux 2015",
		"type":  "wine",
		"taste": "9",
		"tags":  "home,friends",
	}, got.Record)
}

func TestRecognize_CustomPrefix(t *testing.T) {
	r := NewRecognizer("/note")
	require.Equal(t, ValidCommand, r.Recognize("/NOTE type=tea").Kind)
	require.Equal(t, NotACommand, r.Recognize("/log type=tea").Kind)
}

func TestRecognitionKind_String(t *testing.T) {
	require.Equal(t, "not_a_command", NotACommand.String())
	require.Equal(t, "malformed_command", MalformedCommand.String())
	require.Equal(t, "valid_command", ValidCommand.String())
}

func TestRecognize_FullWidthSeparators(t *testing.T) {
	got := NewRecognizer("/log").Recognize("/log\u3000name=x\u3000type=wine\u00a0taste=9")
	require.Equal(t, ValidCommand, got.Kind)
	require.Equal(t, domain.ParsedRecord{"name": "x", "type": "wine", "taste": "9"}, got.Record)
}
