// Package i18n turns pipeline errors and statuses into English or Arabic
// user-facing text and keeps user preferences behind a storage port.
package i18n

import (
	"errors"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Knouxai/Knoux-versa-sub002/internal/execution"
	"github.com/Knouxai/Knoux-versa-sub002/internal/transform"
	"github.com/Knouxai/Knoux-versa-sub002/internal/worker"
)

// Supported lists the available languages, default first.
var Supported = []language.Tag{language.English, language.Arabic}

var (
	matcher = language.NewMatcher(Supported)
	cat     = buildCatalog()
)

// Match picks the supported language closest to the given preferences,
// which may be tags or Accept-Language values.
func Match(prefs ...string) language.Tag {
	var tags []language.Tag
	for _, p := range prefs {
		parsed, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Supported[0]
	}
	return Supported[idx]
}

// Localizer formats messages for one language.
type Localizer struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a localizer for the best match of lang.
func New(lang string) *Localizer {
	tag := Match(lang)
	return &Localizer{tag: tag, printer: message.NewPrinter(tag, message.Catalog(cat))}
}

// Tag returns the language in use.
func (l *Localizer) Tag() language.Tag { return l.tag }

// Language returns the base language code, e.g. "ar".
func (l *Localizer) Language() string {
	base, _ := l.tag.Base()
	return base.String()
}

// RTL reports whether text runs right to left.
func (l *Localizer) RTL() bool { return l.tag == language.Arabic }

// Text formats the message stored under key.
func (l *Localizer) Text(key string, args ...any) string {
	return l.printer.Sprintf(key, args...)
}

// Title title-cases s using the rules of the language.
func (l *Localizer) Title(s string) string {
	return cases.Title(l.tag).String(s)
}

// Message maps an error to user-facing text. Technical detail never leaks.
func (l *Localizer) Message(err error) string {
	if err == nil {
		return ""
	}
	var ve *transform.ValidationError
	if errors.As(err, &ve) {
		return l.validation(ve)
	}
	var (
		te *execution.TransportError
		re *execution.RemoteError
	)
	switch {
	case errors.Is(err, execution.ErrCancelled):
		return l.Text(KeyCancelled)
	case errors.Is(err, worker.ErrTaskTimeout):
		return l.Text(KeyTimeout)
	case errors.As(err, &te), errors.As(err, &re):
		return l.Text(KeyRetry)
	default:
		return l.Text(KeyGeneric)
	}
}

func (l *Localizer) validation(ve *transform.ValidationError) string {
	switch ve.Kind {
	case transform.KindMissingPrompt:
		return l.Text(KeyMissingPrompt)
	case transform.KindMissingSelection:
		return l.Text(KeyMissingSelection)
	case transform.KindMissingSecondImage:
		return l.Text(KeyMissingSecondImage)
	case transform.KindImageTooLarge:
		return l.Text(KeyImageTooLarge)
	case transform.KindUnsupportedFormat:
		return l.Text(KeyUnsupportedFormat)
	case transform.KindUnknownTool:
		return l.Text(KeyUnknownTool)
	case transform.KindVIPRequired:
		return l.Text(KeyVIPRequired)
	case transform.KindInvalidSetting:
		return l.Text(KeyInvalidSetting, ve.Field)
	default:
		return l.Text(KeyGeneric)
	}
}
