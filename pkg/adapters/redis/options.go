package redis

import (
	"strings"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "statecraft:"

type options struct {
	prefix string
	ttl    time.Duration
}

// Option configures the Redis adapters.
type Option func(*options)

// WithTTL sets the expiration of entity state keys. History never expires.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

var keyEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

// keyPart escapes a caller-supplied identifier for use between ':' separators.
func keyPart(s string) string {
	return keyEscaper.Replace(s)
}

func buildOptions(opts []Option) options {
	o := options{prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewClient creates a go-redis client for address.
func NewClient(address, password string, db int) *backend.Client {
	return backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
}
