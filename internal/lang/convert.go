package lang

import (
	"regexp"
	"strings"

	"github.com/muss-lang/muss/internal/runtime"
)

// asUint coerces a resolved TypePrimitive into a non-negative count, the
// shape `empties`/`repeat` counts must take. A negative Int or any
// non-numeric kind fails the coercion rather than silently truncating.
func asUint(v runtime.TypePrimitive) (uint64, bool) {
	if u, ok := v.UInt(); ok {
		return u, true
	}
	if i, ok := v.Int(); ok && i >= 0 {
		return uint64(i), true
	}
	return 0, false
}

// asInt coerces a resolved TypePrimitive into a signed index, used by the
// range and index filter predicates.
func asInt(v runtime.TypePrimitive) (int64, bool) {
	if i, ok := v.Int(); ok {
		return i, true
	}
	if u, ok := v.UInt(); ok {
		return int64(u), true
	}
	return 0, false
}

func asBool(v runtime.TypePrimitive) (bool, bool) {
	return v.Bool()
}

func asString(v runtime.TypePrimitive) (string, bool) {
	return v.Str()
}

var likeNormalizer = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// normalizeForLike lower-cases and strips whitespace/punctuation/underscores
// before a `like` substring comparison, so "Miles Davis" and "miles-davis"
// compare equal.
func normalizeForLike(s string) string {
	return likeNormalizer.ReplaceAllString(strings.ToLower(s), "")
}
