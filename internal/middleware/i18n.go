package middleware

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/language"

	"github.com/Knouxai/Knoux-versa-sub002/internal/i18n"
)

type localeContextKey struct{}
type countryContextKey struct{}

var (
	LocaleKey  = localeContextKey{}
	CountryKey = countryContextKey{}
)

// CountryLookup resolves ISO country codes for an IP address.
type CountryLookup func(ip string) (string, error)

// countryHeaders are set by CDNs and load balancers in front of the service.
var countryHeaders = []string{"X-Country-Code", "X-IP-Country", "CF-IPCountry", "X-Appengine-Country"}

// arabicCountries are the regions where Arabic is the default interface language.
var arabicCountries = map[string]struct{}{
	"AE": {}, "BH": {}, "DZ": {}, "EG": {}, "IQ": {}, "JO": {}, "KW": {}, "LB": {}, "LY": {},
	"MA": {}, "OM": {}, "PS": {}, "QA": {}, "SA": {}, "SD": {}, "SY": {}, "TN": {}, "YE": {},
}

// I18N stores the negotiated locale and the caller's country in the request
// context and announces the locale in Content-Language.
func I18N(defaultLocale string, lookup CountryLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			country := ResolveCountry(r, lookup)
			locale := detectLocale(r, defaultLocale, country)
			ctx := context.WithValue(r.Context(), LocaleKey, locale)
			if country != "" {
				ctx = context.WithValue(ctx, CountryKey, country)
			}
			w.Header().Add("Vary", "Accept-Language")
			w.Header().Set("Content-Language", locale)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// detectLocale tries, in order: X-Locale, Accept-Language, the caller's
// country, the configured fallback.
func detectLocale(r *http.Request, fallback string, country string) string {
	if v := strings.TrimSpace(r.Header.Get("X-Locale")); v != "" {
		return normalizeLocale(v)
	}
	if tags := acceptedTags(r.Header.Get("Accept-Language")); len(tags) > 0 {
		return baseOf(i18n.Match(tagStrings(tags)...))
	}
	if country != "" {
		if _, ok := arabicCountries[country]; ok {
			return "ar"
		}
		return "en"
	}
	if fallback != "" {
		return normalizeLocale(fallback)
	}
	return "en"
}

func normalizeLocale(locale string) string {
	return baseOf(i18n.Match(locale))
}

func baseOf(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}

// acceptedTags parses an Accept-Language header in preference order.
// Malformed headers yield no tags.
func acceptedTags(header string) []language.Tag {
	if strings.TrimSpace(header) == "" {
		return nil
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return nil
	}
	return tags
}

func tagStrings(tags []language.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.String()
	}
	return out
}

// explicitRegion returns the region written in the first tag that has one.
// Regions inferred from a bare language ("en" -> US) do not count.
func explicitRegion(tags []language.Tag) string {
	for _, t := range tags {
		if region, conf := t.Region(); conf == language.Exact {
			return region.String()
		}
	}
	return ""
}

func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(LocaleKey).(string); ok {
		return v
	}
	return "en"
}

// CountryFromContext returns the ISO country code stored in the request context.
func CountryFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CountryKey).(string); ok {
		return v
	}
	return ""
}

// ResolveCountry resolves a best-effort upper-case ISO country code from
// proxy headers, the region of the requested locale, then a GeoIP lookup.
func ResolveCountry(r *http.Request, lookup CountryLookup) string {
	if r == nil {
		return ""
	}
	for _, key := range countryHeaders {
		if val := strings.TrimSpace(r.Header.Get(key)); val != "" {
			return strings.ToUpper(val)
		}
	}
	if tag, err := language.Parse(strings.TrimSpace(r.Header.Get("X-Locale"))); err == nil {
		if region := explicitRegion([]language.Tag{tag}); region != "" {
			return region
		}
	}
	if region := explicitRegion(acceptedTags(r.Header.Get("Accept-Language"))); region != "" {
		return region
	}
	if lookup != nil {
		if ip := clientIP(r); ip != "" {
			if country, err := lookup(ip); err == nil && country != "" {
				return strings.ToUpper(country)
			}
		}
	}
	return ""
}
