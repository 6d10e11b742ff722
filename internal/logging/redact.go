package logging

import (
	"log/slog"
	"slices"
	"strings"
)

const redacted = "[REDACTED]"

// secretKeys are attribute keys whose values never reach a log sink.
var secretKeys = map[string]struct{}{
	"password":     {},
	"secret":       {},
	"secret_key":   {},
	"key":          {},
	"key_material": {},
	"token":        {},
	"access_token": {},
}

func isSecret(key string) bool {
	_, ok := secretKeys[strings.ToLower(key)]
	return ok
}

// redact returns args with the values of secret keys replaced. It accepts
// the same mix of key-value pairs and slog.Attr that slog does, and leaves
// args itself untouched.
func redact(args []any) []any {
	var out []any
	set := func(i int, v any) {
		if out == nil {
			out = slices.Clone(args)
		}
		out[i] = v
	}

	for i := 0; i < len(args); {
		switch k := args[i].(type) {
		case slog.Attr:
			if isSecret(k.Key) {
				set(i, slog.String(k.Key, redacted))
			}
			i++
		case string:
			if i+1 < len(args) && isSecret(k) {
				set(i+1, redacted)
			}
			i += 2
		default:
			i++
		}
	}

	if out == nil {
		return args
	}
	return out
}
