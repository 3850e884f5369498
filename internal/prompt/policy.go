package prompt

import (
	"time"

	"github.com/DoyleJ11/krutagidon-client/internal/timeouts"
)

// TimeoutPolicy says which prompts answer themselves and after how long.
// One policy covers every kind; After <= 0 turns auto-resolution off.
type TimeoutPolicy struct {
	After time.Duration
	Kinds map[Kind]bool
}

// DefaultTimeoutPolicy auto-resolves every kind after 30 seconds.
func DefaultTimeoutPolicy() TimeoutPolicy {
	return TimeoutPolicy{
		After: timeouts.Prompt,
		Kinds: map[Kind]bool{
			KindAttackTarget:       true,
			KindDefense:            true,
			KindDiscardDestruction: true,
			KindTopDeckChoice:      true,
		},
	}
}

// PolicyFromConfig builds a policy from a duration and a list of kind names.
// Unknown names are returned so the caller can log them.
func PolicyFromConfig(after time.Duration, kinds []string) (TimeoutPolicy, []string) {
	p := TimeoutPolicy{After: after, Kinds: make(map[Kind]bool, len(kinds))}
	var unknown []string
	for _, k := range kinds {
		switch Kind(k) {
		case KindAttackTarget, KindDefense, KindDiscardDestruction, KindTopDeckChoice:
			p.Kinds[Kind(k)] = true
		default:
			unknown = append(unknown, k)
		}
	}
	return p, unknown
}

func (p TimeoutPolicy) applies(k Kind) bool {
	return p.After > 0 && p.Kinds[k]
}
