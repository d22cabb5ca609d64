package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	seqPadRe = regexp.MustCompile(`\{SEQ(\d+)\}`)
	randRe   = regexp.MustCompile(`\{RAND(\d+)\}`)
)

const DefaultInvoiceNumberTemplate = "INV-{YYYY}{MM}{DD}-{RAND6}"

// maxRandWidth is the number of random characters in a ULID.
const maxRandWidth = 16

// Tokens carries the variable parts of an invoice number.
type Tokens struct {
	IssuedAt time.Time
	Seq      int64
	// Random holds uppercase characters consumed by {RANDn}.
	Random string
}

// NewTokens builds tokens with a fresh random part.
func NewTokens(issuedAt time.Time, seq int64) Tokens {
	return Tokens{IssuedAt: issuedAt, Seq: seq, Random: RandomToken()}
}

// RandomToken returns the random section of a new ULID (Crockford base32,
// uppercase).
func RandomToken() string {
	return ulid.Make().String()[10:]
}

// FormatInvoiceNumber renders a human-readable invoice number from a template.
// Supported tokens: {YYYY} {YY} {MM} {DD} {SEQ} {SEQn} {RANDn}.
func FormatInvoiceNumber(template string, tokens Tokens) (string, error) {
	if template == "" {
		return "", fmt.Errorf("invoice number template is empty")
	}

	usesSeq := strings.Contains(template, "{SEQ")
	if usesSeq && tokens.Seq <= 0 {
		return "", fmt.Errorf("invalid invoice sequence: %d", tokens.Seq)
	}

	out := template
	issuedAt := tokens.IssuedAt

	out = strings.ReplaceAll(out, "{YYYY}", issuedAt.Format("2006"))
	out = strings.ReplaceAll(out, "{YY}", issuedAt.Format("06"))
	out = strings.ReplaceAll(out, "{MM}", issuedAt.Format("01"))
	out = strings.ReplaceAll(out, "{DD}", issuedAt.Format("02"))

	if usesSeq {
		out = strings.ReplaceAll(out, "{SEQ}", strconv.FormatInt(tokens.Seq, 10))
		out = seqPadRe.ReplaceAllStringFunc(out, func(m string) string {
			width, ok := tokenWidth(seqPadRe, m)
			if !ok {
				return m
			}
			return fmt.Sprintf("%0*d", width, tokens.Seq)
		})
	}

	var randErr error
	out = randRe.ReplaceAllStringFunc(out, func(m string) string {
		width, ok := tokenWidth(randRe, m)
		if !ok || width > maxRandWidth {
			randErr = fmt.Errorf("invalid random width in %s", m)
			return m
		}
		if len(tokens.Random) < width {
			randErr = fmt.Errorf("random token too short for %s", m)
			return m
		}
		return strings.ToUpper(tokens.Random[:width])
	})
	if randErr != nil {
		return "", randErr
	}

	if strings.Contains(out, "{") || strings.Contains(out, "}") {
		return "", fmt.Errorf("unresolved token in invoice format: %s", out)
	}

	return out, nil
}

// ValidateTemplate checks that a template renders with placeholder values.
func ValidateTemplate(template string) error {
	_, err := FormatInvoiceNumber(template, Tokens{
		IssuedAt: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		Seq:      1,
		Random:   strings.Repeat("X", maxRandWidth),
	})
	return err
}

func tokenWidth(re *regexp.Regexp, m string) (int, bool) {
	match := re.FindStringSubmatch(m)
	if len(match) != 2 {
		return 0, false
	}
	width, err := strconv.Atoi(match[1])
	if err != nil || width <= 0 {
		return 0, false
	}
	return width, true
}
