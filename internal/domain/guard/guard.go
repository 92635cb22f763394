// Package guard scans user text for prompt-injection phrasing before it reaches
// a templated agent and scrubs secret-shaped tokens from outgoing text.
// All functions are pure.
package guard

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// PatternWeight is the score each matching detector adds.
	PatternWeight = 2
	// BlockThreshold is the score at which input is blocked.
	BlockThreshold = 3
	// MaxResponseChars is the output budget in characters (runes).
	MaxResponseChars = 1200

	// Warning is returned for blocked input.
	Warning = "Sicherheitswarnung: Die Anfrage enthält potenziell schädliche Anweisungen. Bitte formuliere sie neu."
	// RedactionMarker replaces every secret-shaped token.
	RedactionMarker = "[REDACTED]"
	// TruncationNotice is appended when a response exceeds MaxResponseChars.
	TruncationNotice = "\n\n[Antwort gekürzt zum Schutz der Daten.]"
)

type detector struct {
	source string
	re     *regexp.Regexp
}

func newDetector(source string) detector {
	return detector{source: source, re: regexp.MustCompile(`(?i)` + source)}
}

// Order is significant: reasons are reported in this order.
var detectors = []detector{
	newDetector(`ignore\s+previous\s+instructions`),
	newDetector(`system\s+prompt`),
	newDetector(`reveal\s+.*(secret|token|key)`),
	newDetector(`exfiltrate`),
	newDetector(`dump\s+.*(database|logs|keys)`),
	newDetector(`supabase\s+key`),
	newDetector(`api\s+key`),
	newDetector(`access\s+token`),
	newDetector(`BEGIN\s+PRIVATE\s+KEY`),
}

var redactions = []*regexp.Regexp{
	regexp.MustCompile(`eyJ[a-zA-Z0-9_-]{10,}\.[a-zA-Z0-9_-]{10,}\.[a-zA-Z0-9_-]{10,}`),
	regexp.MustCompile(`sk-[a-zA-Z0-9]{16,}`),
}

// Result is the outcome of a scan. A blocked result is a policy decision, not
// an error.
type Result struct {
	Blocked bool     `json:"blocked"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
	Warning *string  `json:"warning"`
}

// Scan runs every detector against input.
func Scan(input string) Result {
	res := Result{Reasons: []string{}}
	for _, d := range detectors {
		if d.re.MatchString(input) {
			res.Score += PatternWeight
			res.Reasons = append(res.Reasons, "Pattern matched: "+d.source)
		}
	}
	if res.Score >= BlockThreshold {
		res.Blocked = true
		w := Warning
		res.Warning = &w
	}
	return res
}

// Redact replaces secret-shaped tokens with RedactionMarker.
func Redact(s string) string {
	for _, re := range redactions {
		s = re.ReplaceAllLiteralString(s, RedactionMarker)
	}
	return s
}

// ApplyOutputGuard redacts response and then truncates it to MaxResponseChars,
// appending TruncationNotice when it was cut. The cut never lands inside a
// redaction marker; it moves back to the marker start instead.
func ApplyOutputGuard(response string) string {
	s := Redact(response)
	if utf8.RuneCountInString(s) <= MaxResponseChars {
		return s
	}

	cut := byteOffset(s, MaxResponseChars)
	if start := markerStart(s, cut); start >= 0 {
		cut = start
	}
	return s[:cut] + TruncationNotice
}

// byteOffset returns the byte index of the n-th rune in s.
func byteOffset(s string, n int) int {
	i := 0
	for pos := range s {
		if i == n {
			return pos
		}
		i++
	}
	return len(s)
}

// markerStart returns the start of a redaction marker that spans cut, or -1.
func markerStart(s string, cut int) int {
	from := cut - len(RedactionMarker) + 1
	if from < 0 {
		from = 0
	}
	window := s[from:min(len(s), cut+len(RedactionMarker))]
	for off := 0; ; {
		i := strings.Index(window[off:], RedactionMarker)
		if i < 0 {
			return -1
		}
		start := from + off + i
		if start < cut && start+len(RedactionMarker) > cut {
			return start
		}
		off += i + 1
	}
}
