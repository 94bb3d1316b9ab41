package tagger

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/araddon/dateparse"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// DateTimeRecognizer finds a natural-language date or time expression in text
// and resolves it against a base time. Implementations must return ok=false
// when nothing recognizable is present.
type DateTimeRecognizer interface {
	Recognize(text string, base time.Time) (time.Time, bool)
}

// WhenRecognizer backs DateTimeRecognizer with the olebedev/when rule engine.
type WhenRecognizer struct {
	parser *when.Parser
}

// NewWhenRecognizer constructs a recognizer with the English and common rules.
func NewWhenRecognizer() *WhenRecognizer {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &WhenRecognizer{parser: w}
}

// Recognize implements DateTimeRecognizer.
func (r *WhenRecognizer) Recognize(text string, base time.Time) (time.Time, bool) {
	res, err := r.parser.Parse(text, base)
	if err != nil || res == nil {
		return time.Time{}, false
	}
	return res.Time, true
}

// relativePastPattern matches lexical references to the present or past.
// These are trusted unconditionally; they never need date validation.
var relativePastPattern = regexp.MustCompile(`(?i)\b(?:today|yesterday|\d+\s*(?:day|week|month|year)s?\s*ago|last\s+(?:week|month|year)|this\s+(?:morning|afternoon|evening)|earlier|previously|before|already)\b`)

// dateTokenPattern matches the numeric date shapes we accept, used both for
// detection and for inserting separating spaces around glued-on tokens.
var dateTokenPattern = regexp.MustCompile(`\d{4}-\d{1,2}-\d{1,2}|\d{1,2}[/.-]\d{1,2}(?:[/.-]\d{2,4})?`)

var (
	ordinalToken = regexp.MustCompile(`(?i)\b\d{1,2}(?:st|nd|rd|th)\b`)
	ordinalIdiom = regexp.MustCompile(`(?i)\b\d{1,2}(?:st|nd|rd|th)\s+(?:(?:and|&)\s+\d{1,2}(?:st|nd|rd|th)\s+)?\w*\s*(?:email|attempt|try|time|round|step|phase)s?\b`)
	ordinalPair  = regexp.MustCompile(`(?i)\b\d{1,2}(?:st|nd|rd|th)\s+(?:and|&)\s+\d{1,2}(?:st|nd|rd|th)\b`)
	firstSecond  = regexp.MustCompile(`(?i)\bfirst\s+and\s+second\b`)
)

const monthNames = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t|tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`

// textualPattern pairs a regular expression with its resolution rule for
// written-out dates like "May 10, 2023" or "10 May 2023".
type textualPattern struct {
	re    *regexp.Regexp
	parse func(m []string, ref time.Time) (time.Time, bool)
}

var textualPatterns = []textualPattern{
	{regexp.MustCompile(`(?i)\b(` + monthNames + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?\b`), parseMonthFirst},
	{regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(` + monthNames + `)(?:,?\s+(\d{4}))?\b`), parseDayFirst},
}

// DateExtractor detects date and relative-time references in text spans and
// resolves them to concrete calendar dates. The natural-language recognizer
// is optional; without it only the lexical and explicit-token rules apply.
type DateExtractor struct {
	recognizer  DateTimeRecognizer
	windowYears int
	now         func() time.Time
}

// NewDateExtractor constructs an extractor with the given fallback recognizer.
func NewDateExtractor(recognizer DateTimeRecognizer, cfg Config) *DateExtractor {
	cfg.ApplyDefaults()
	return &DateExtractor{
		recognizer:  recognizer,
		windowYears: cfg.PastWindowYears,
		now:         time.Now,
	}
}

// HasDateOrTimeReference reports whether text contains a relative-past time
// expression or an explicit date that resolves on or before ref. A zero ref
// falls back to the current processing time.
func (e *DateExtractor) HasDateOrTimeReference(text string, ref time.Time) bool {
	if len(strings.TrimSpace(text)) < 3 {
		return false
	}
	if relativePastPattern.MatchString(text) {
		return true
	}
	if ref.IsZero() {
		ref = e.now()
	}
	prepared := maskOrdinals(spaceDateTokens(text))
	if _, ok := e.findPatternDate(prepared, ref); ok {
		return true
	}
	if e.recognizer != nil {
		if d, ok := e.recognizer.Recognize(prepared, ref); ok && e.validPast(d, ref) {
			return true
		}
	}
	return false
}

// ExtractDate returns the best concrete date found in text, resolved against
// ref. When nothing in the text yields a valid past date the reference date
// itself is returned (or the processing date if ref is zero).
func (e *DateExtractor) ExtractDate(text string, ref time.Time) time.Time {
	if ref.IsZero() {
		ref = e.now()
	}
	ref = dateOnly(ref)

	lower := strings.ToLower(text)
	if strings.Contains(lower, "today") {
		return ref
	}
	if strings.Contains(lower, "yesterday") {
		return ref.AddDate(0, 0, -1)
	}

	prepared := maskOrdinals(spaceDateTokens(text))
	if d, ok := e.findPatternDate(prepared, ref); ok {
		return d
	}
	if e.recognizer != nil {
		if d, ok := e.recognizer.Recognize(prepared, ref); ok && e.validPast(d, ref) {
			return dateOnly(d)
		}
	}
	if d, err := dateparse.ParseAny(strings.TrimSpace(prepared)); err == nil && e.validPast(d, ref) {
		return dateOnly(d)
	}
	return ref
}

// findPatternDate scans the explicit date tokens and textual date forms in
// order of appearance and returns the first candidate that resolves to a
// valid past date. Candidates that fail to resolve are skipped, not treated
// as errors. Numeric tokens are matched whole so a bare month/day reading
// can never rescue a rejected full date.
func (e *DateExtractor) findPatternDate(text string, ref time.Time) (time.Time, bool) {
	for _, token := range dateTokenPattern.FindAllString(text, -1) {
		d, ok := parseNumericToken(token, ref)
		if ok && e.validPast(d, ref) {
			return d, true
		}
	}
	for _, p := range textualPatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			d, ok := p.parse(m, ref)
			if ok && e.validPast(d, ref) {
				return d, true
			}
		}
	}
	return time.Time{}, false
}

// parseNumericToken resolves a slash, dash or dot separated date token using
// MDY ordering, except for the unambiguous YYYY-MM-DD form. Two-digit years
// get a 20 prefix; a missing year is anchored to the reference date.
func parseNumericToken(token string, ref time.Time) (time.Time, bool) {
	var sep string
	switch {
	case strings.Contains(token, "/"):
		sep = "/"
	case strings.Contains(token, "-"):
		sep = "-"
	case strings.Contains(token, "."):
		sep = "."
	default:
		return time.Time{}, false
	}
	parts := strings.Split(token, sep)
	switch len(parts) {
	case 3:
		if len(parts[0]) == 4 {
			return makeDate(atoi(parts[0]), atoi(parts[1]), atoi(parts[2]))
		}
		year := atoi(parts[2])
		if len(parts[2]) == 2 {
			year += 2000
		}
		return makeDate(year, atoi(parts[0]), atoi(parts[1]))
	case 2:
		// Only the slash form may omit the year (5/10); dashed or dotted
		// two-part tokens are too ambiguous to treat as dates.
		if sep != "/" {
			return time.Time{}, false
		}
		return resolveNoYear(atoi(parts[0]), atoi(parts[1]), ref)
	default:
		return time.Time{}, false
	}
}

// validPast reports whether d lies on or before ref and no more than the
// configured window before it. Values outside the window are parsing noise.
func (e *DateExtractor) validPast(d, ref time.Time) bool {
	d = dateOnly(d)
	ref = dateOnly(ref)
	return !d.After(ref) && !d.Before(ref.AddDate(-e.windowYears, 0, 0))
}

func parseMonthFirst(m []string, ref time.Time) (time.Time, bool) {
	mo, ok := monthByName(m[1])
	if !ok {
		return time.Time{}, false
	}
	if m[3] != "" {
		return makeDate(atoi(m[3]), int(mo), atoi(m[2]))
	}
	return resolveNoYear(int(mo), atoi(m[2]), ref)
}

func parseDayFirst(m []string, ref time.Time) (time.Time, bool) {
	mo, ok := monthByName(m[2])
	if !ok {
		return time.Time{}, false
	}
	if m[3] != "" {
		return makeDate(atoi(m[3]), int(mo), atoi(m[1]))
	}
	return resolveNoYear(int(mo), atoi(m[1]), ref)
}

// makeDate builds a day-precision date, rejecting impossible month/day
// combinations instead of letting time.Date roll them over.
func makeDate(y, mo, d int) (time.Time, bool) {
	if mo < 1 || mo > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != mo || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// resolveNoYear anchors a month/day token to the reference year, stepping one
// year back when the result would land in the future.
func resolveNoYear(mo, d int, ref time.Time) (time.Time, bool) {
	t, ok := makeDate(ref.Year(), mo, d)
	if !ok {
		return time.Time{}, false
	}
	if t.After(dateOnly(ref)) {
		return makeDate(ref.Year()-1, mo, d)
	}
	return t, true
}

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

func monthByName(name string) (time.Month, bool) {
	name = strings.ToLower(name)
	if len(name) > 3 {
		name = name[:3]
	}
	mo, ok := months[name]
	return mo, ok
}

// spaceDateTokens inserts a separating space between a date token and
// immediately adjacent non-space, non-digit text in either direction, e.g.
// "07/24/2024-ICF" becomes "07/24/2024 -ICF".
func spaceDateTokens(text string) string {
	locs := dateTokenPattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text
	}
	var b strings.Builder
	last := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		b.WriteString(text[last:start])
		if start > 0 {
			if r, _ := utf8.DecodeLastRuneInString(text[:start]); !unicode.IsSpace(r) && !unicode.IsDigit(r) {
				b.WriteByte(' ')
			}
		}
		b.WriteString(text[start:end])
		if end < len(text) {
			if r, _ := utf8.DecodeRuneInString(text[end:]); !unicode.IsSpace(r) && !unicode.IsDigit(r) {
				b.WriteByte(' ')
			}
		}
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

// maskOrdinals blanks ordinal number tokens when the surrounding text reads
// as an enumeration ("1st and 2nd email", "3rd attempt") rather than a date.
func maskOrdinals(text string) string {
	if !ordinalIdiom.MatchString(text) && !ordinalPair.MatchString(text) && !firstSecond.MatchString(text) {
		return text
	}
	return ordinalToken.ReplaceAllStringFunc(text, func(m string) string {
		return strings.Repeat(" ", len(m))
	})
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
