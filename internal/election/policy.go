package election

import "github.com/tordrt/cfelect/internal/schema"

// Resolve decides whether a view may be fast-streamed under policy
func Resolve(policy schema.FastStreamPolicy, congruent bool) bool {
	switch policy {
	case schema.FastStreamAlways:
		return true
	case schema.FastStreamAuto:
		return congruent
	case schema.FastStreamNever:
		return false
	default:
		return false
	}
}
