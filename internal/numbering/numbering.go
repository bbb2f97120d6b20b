package numbering

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var randPadRe = regexp.MustCompile(`\{RAND(\d+)\}`)

const (
	QuoteTemplate   = "QUO-{YYYY}{MM}{DD}-{hh}{mm}{ss}-{RAND6}"
	InvoiceTemplate = "INV-{YYYY}{MM}{DD}-{hh}{mm}{ss}-{RAND6}"
	TicketTemplate  = "RPR-{YYYY}{MM}{DD}-{RAND6}"
)

// MaxAttempts bounds how many fresh numbers a caller tries before giving up
// on a unique-key collision.
const MaxAttempts = 5

// Generator produces document numbers. Implementations must return a fresh
// value on every call.
type Generator interface {
	Next(template string, at time.Time) (string, error)
}

type GeneratorFunc func(template string, at time.Time) (string, error)

func (f GeneratorFunc) Next(template string, at time.Time) (string, error) {
	return f(template, at)
}

// NewGenerator returns the ULID-backed generator.
func NewGenerator() Generator {
	return GeneratorFunc(func(template string, at time.Time) (string, error) {
		return Format(template, at, randomSuffix)
	})
}

// randomSuffix takes the tail of a ULID, which is entirely entropy.
func randomSuffix(n int) string {
	id := ulid.Make().String()
	for len(id) < n {
		id += ulid.Make().String()[10:]
	}
	return id[len(id)-n:]
}

// Format expands date tokens and {RANDn} against at (in UTC).
//
// Supported tokens: {YYYY} {YY} {MM} {DD} {hh} {mm} {ss} {RANDn}.
func Format(template string, at time.Time, random func(n int) string) (string, error) {
	if template == "" {
		return "", fmt.Errorf("number template is empty")
	}

	at = at.UTC()
	out := template
	out = strings.ReplaceAll(out, "{YYYY}", at.Format("2006"))
	out = strings.ReplaceAll(out, "{YY}", at.Format("06"))
	out = strings.ReplaceAll(out, "{MM}", at.Format("01"))
	out = strings.ReplaceAll(out, "{DD}", at.Format("02"))
	out = strings.ReplaceAll(out, "{hh}", at.Format("15"))
	out = strings.ReplaceAll(out, "{mm}", at.Format("04"))
	out = strings.ReplaceAll(out, "{ss}", at.Format("05"))

	out = randPadRe.ReplaceAllStringFunc(out, func(m string) string {
		match := randPadRe.FindStringSubmatch(m)
		width, err := strconv.Atoi(match[1])
		if err != nil || width <= 0 {
			return m
		}
		return random(width)
	})

	if strings.Contains(out, "{") || strings.Contains(out, "}") {
		return "", fmt.Errorf("unresolved token in number format: %s", out)
	}
	return out, nil
}
