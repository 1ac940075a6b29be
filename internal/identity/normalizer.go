// Package identity canonicalizes free-text horse and track names so that
// records from different providers can be compared.
package identity

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/yourusername/racefuse/internal/models"
)

var (
	parenthesised = regexp.MustCompile(`\([^)]*\)`)
	stripped      = strings.NewReplacer("'", "", "’", "", "‘", "", "`", "", ".", "", "(", "", ")", "")
)

// NormalizedIdentity is the comparison form of a record. It is never
// persisted.
type NormalizedIdentity struct {
	CanonicalName  string
	CanonicalTrack string
}

// Normalizer turns names into canonical strings. Its alias table is fixed at
// construction and only read afterwards, so one Normalizer can be shared by
// every worker.
type Normalizer struct {
	aliases  map[string]string
	validate *validator.Validate
}

// NewNormalizer builds a normalizer from the built-in track alias table
// merged with extra. Keys and values of extra are normalized before use.
func NewNormalizer(extra map[string]string) *Normalizer {
	n := &Normalizer{
		aliases:  make(map[string]string, len(builtinTrackAliases)+len(extra)),
		validate: validator.New(),
	}
	for k, v := range builtinTrackAliases {
		n.aliases[Canonical(k)] = Canonical(v)
	}
	for k, v := range extra {
		n.aliases[Canonical(k)] = Canonical(v)
	}
	return n
}

var defaultNormalizer = NewNormalizer(nil)

// Default returns the shared normalizer holding only the built-in aliases.
func Default() *Normalizer {
	return defaultNormalizer
}

// Canonical applies the name rules: fold accents, lower-case, trim, collapse
// whitespace and strip apostrophes, periods and parenthesised content.
func Canonical(s string) string {
	s = fold(s)
	s = strings.ToLower(s)
	s = strings.TrimSpace(s)
	s = collapse(s)
	s = parenthesised.ReplaceAllString(s, " ")
	s = stripped.Replace(s)
	return collapse(strings.TrimSpace(s))
}

// Name canonicalizes a horse name.
func (n *Normalizer) Name(s string) string {
	return Canonical(s)
}

// Track canonicalizes a track name and resolves known aliases.
func (n *Normalizer) Track(s string) string {
	c := Canonical(s)
	if alias, ok := n.aliases[c]; ok {
		return alias
	}
	return c
}

// NormalizeAny canonicalizes v if it is a string and returns "" otherwise.
func (n *Normalizer) NormalizeAny(v any) string {
	switch s := v.(type) {
	case string:
		return n.Name(s)
	case *string:
		if s == nil {
			return ""
		}
		return n.Name(*s)
	default:
		return ""
	}
}

// Identify validates a runner record and returns its comparison form.
// Records without track, race number or horse name are rejected with
// models.ErrMissingRequiredField.
func (n *Normalizer) Identify(r *models.RawRunnerRecord) (NormalizedIdentity, error) {
	if r == nil {
		return NormalizedIdentity{}, fmt.Errorf("nil record: %w", models.ErrMissingRequiredField)
	}
	if err := n.validate.Struct(r); err != nil {
		return NormalizedIdentity{}, models.NewRecordError(models.ErrMissingRequiredField, r, describe(err))
	}
	id := NormalizedIdentity{
		CanonicalName:  n.Name(r.HorseName),
		CanonicalTrack: n.Track(r.Track),
	}
	if id.CanonicalName == "" || id.CanonicalTrack == "" {
		return NormalizedIdentity{}, models.NewRecordError(models.ErrMissingRequiredField, r, "name or track empty after normalization")
	}
	return id, nil
}

// Check validates a feed record against its struct tags. Failures wrap
// models.ErrMissingRequiredField.
func (n *Normalizer) Check(record any) error {
	if err := n.validate.Struct(record); err != nil {
		return fmt.Errorf("%s: %w", describe(err), models.ErrMissingRequiredField)
	}
	return nil
}

// Equal reports whether two canonical names denote the same entity. Empty
// names never match anything, including each other.
func Equal(a, b string) bool {
	return a != "" && b != "" && a == b
}

// Contains reports whether either canonical name contains the other. Empty
// names never match.
func Contains(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func describe(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	fields := make([]string, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(fields, ", ")
}
