package schema

import (
	"fmt"
	"strings"
)

// FastStreamPolicy is the per-table mv_fast_stream setting. It controls whether
// the views of a table may be streamed like ordinary tables by operations that
// honor the policy.
type FastStreamPolicy int

const (
	// FastStreamNever rebuilds views through the write path. It is the default.
	FastStreamNever FastStreamPolicy = iota
	// FastStreamAuto streams a view directly only when its primary key is
	// congruent with the base table's primary key.
	FastStreamAuto
	// FastStreamAlways streams every view directly.
	FastStreamAlways
)

// DefaultFastStreamPolicy applies to tables created without mv_fast_stream
const DefaultFastStreamPolicy = FastStreamNever

var policyNames = [...]string{
	FastStreamNever:  "never",
	FastStreamAuto:   "auto",
	FastStreamAlways: "always",
}

// ParseFastStreamPolicy parses an mv_fast_stream token, ignoring case.
// An empty token yields the default policy.
func ParseFastStreamPolicy(text string) (FastStreamPolicy, error) {
	token := strings.TrimSpace(text)
	if token == "" {
		return DefaultFastStreamPolicy, nil
	}
	for p, name := range policyNames {
		if strings.EqualFold(name, token) {
			return FastStreamPolicy(p), nil
		}
	}
	return DefaultFastStreamPolicy, fmt.Errorf("invalid mv_fast_stream value %q (must be auto, always or never)", text)
}

// Valid reports whether p is one of the defined policies
func (p FastStreamPolicy) Valid() bool {
	return p >= FastStreamNever && p <= FastStreamAlways
}

func (p FastStreamPolicy) String() string {
	if !p.Valid() {
		return fmt.Sprintf("FastStreamPolicy(%d)", int(p))
	}
	return policyNames[p]
}

// MarshalText implements encoding.TextMarshaler
func (p FastStreamPolicy) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid mv_fast_stream policy %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *FastStreamPolicy) UnmarshalText(text []byte) error {
	parsed, err := ParseFastStreamPolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
