package parser

// StringIntern deduplicates strings within a single parse.
// Channel descriptors repeat the same phase, unit and component names many times,
// so each parse keeps its own pool; nothing is shared between calls.
type StringIntern struct {
	pool map[string]string
}

// NewStringIntern creates a new string interner.
func NewStringIntern() *StringIntern {
	return &StringIntern{
		pool: make(map[string]string, 64),
	}
}

// MaxInternPoolSize limits the pool; past it strings are returned without being stored.
const MaxInternPoolSize = 100000

// Intern returns the canonical version of the string.
func (si *StringIntern) Intern(s string) string {
	if pooled, ok := si.pool[s]; ok {
		return pooled
	}
	if len(si.pool) >= MaxInternPoolSize {
		return s
	}
	// Clone so the pooled value does not pin the whole input buffer.
	c := string([]byte(s))
	si.pool[c] = c
	return c
}

// Len returns the number of unique strings in the pool.
func (si *StringIntern) Len() int {
	return len(si.pool)
}
