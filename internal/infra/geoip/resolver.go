// Package geoip maps client IP addresses to ISO country codes so the service
// can pick an interface language when the request carries no preference.
package geoip

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/oschwald/geoip2-golang"

	"github.com/Knouxai/Knoux-versa-sub002/internal/cache"
)

// ErrUnavailable is returned when the resolver is not initialized.
var ErrUnavailable = errors.New("geoip resolver unavailable")

const (
	memoSize = 4096
	memoTTL  = time.Hour
)

// countryReader is the part of *geoip2.Reader the resolver uses.
type countryReader interface {
	Country(ip net.IP) (*geoip2.Country, error)
	Close() error
}

// Resolver looks countries up in a MaxMind GeoIP2 database and remembers
// recent answers, including "unknown".
type Resolver struct {
	reader countryReader
	memo   cache.Store
}

// NewResolver opens the GeoIP database at the given path. An empty path
// yields a nil resolver, which Lookup treats as "no lookup".
func NewResolver(path string) (*Resolver, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geoip: open database: %w", err)
	}
	return newResolver(reader), nil
}

func newResolver(reader countryReader) *Resolver {
	return &Resolver{reader: reader, memo: cache.NewMemory(memoSize)}
}

// CountryCode returns the ISO country code for ip, or "" for private,
// loopback and unknown addresses.
func (r *Resolver) CountryCode(ip string) (string, error) {
	if r == nil || r.reader == nil {
		return "", ErrUnavailable
	}
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return "", fmt.Errorf("geoip: invalid ip %q", ip)
	}
	if parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() {
		return "", nil
	}
	ctx := context.Background()
	key := parsed.String()
	if v, ok, _ := r.memo.Get(ctx, key); ok {
		return string(v), nil
	}
	record, err := r.reader.Country(parsed)
	if err != nil {
		return "", fmt.Errorf("geoip: lookup country: %w", err)
	}
	code := ""
	if record != nil {
		code = strings.ToUpper(record.Country.IsoCode)
	}
	_ = r.memo.Set(ctx, key, []byte(code), memoTTL)
	return code, nil
}

// Lookup adapts the resolver to the middleware's lookup signature. It
// returns nil when no database is loaded.
func (r *Resolver) Lookup() func(ip string) (string, error) {
	if r == nil || r.reader == nil {
		return nil
	}
	return r.CountryCode
}

// Close closes the underlying database reader.
func (r *Resolver) Close() error {
	if r == nil || r.reader == nil {
		return nil
	}
	return r.reader.Close()
}
