// Package score implements the Golden Dice scoring algorithm.
//
// A finished session is compared against the day's golden number twice:
// once for full ordered equality, and once on the distinct digit values each
// side contains. The ordered comparison drives the jackpot tier; the
// unordered one drives the consolation tiers. Repeated digits in a roll
// sequence never raise the match count beyond the number of distinct golden
// digits covered.
package score

// Default payouts applied when a setting is absent.
const (
	DefaultMatch3       int64 = 10
	DefaultMatch5       int64 = 15
	DefaultAllUnordered int64 = 30
	DefaultExactOrdered int64 = 10000
)

// Tiers holds the configured payout for each award tier. The tier
// boundaries themselves (all of N, 5, 3 distinct matches) are fixed policy.
type Tiers struct {
	Match3       int64
	Match5       int64
	AllUnordered int64
	ExactOrdered int64
}

// DefaultTiers returns the default payout configuration.
func DefaultTiers() Tiers {
	return Tiers{
		Match3:       DefaultMatch3,
		Match5:       DefaultMatch5,
		AllUnordered: DefaultAllUnordered,
		ExactOrdered: DefaultExactOrdered,
	}
}

// Result is the outcome of scoring one finished session.
type Result struct {
	Award      int64
	Exact      bool
	MatchCount int
}

// Compute scores the accumulated roll digits against the golden number.
//
// MatchCount is the number of distinct digit values present in digits that
// also appear anywhere in golden - a set intersection, not a positional or
// count-weighted comparison. Tier precedence, first match wins:
// exact ordered equality, then MatchCount >= len(golden), then >= 5,
// then >= 3, otherwise no award.
func Compute(golden, digits string, tiers Tiers) Result {
	exact := digits == golden
	in := matchCount(golden, digits)

	switch {
	case exact:
		return Result{Award: tiers.ExactOrdered, Exact: true, MatchCount: in}
	case in >= len(golden):
		return Result{Award: tiers.AllUnordered, MatchCount: in}
	case in >= 5:
		return Result{Award: tiers.Match5, MatchCount: in}
	case in >= 3:
		return Result{Award: tiers.Match3, MatchCount: in}
	default:
		return Result{MatchCount: in}
	}
}

// matchCount counts the distinct digit values of digits that also occur
// anywhere in golden.
func matchCount(golden, digits string) int {
	goldenSet := distinctDigits(golden)
	in := 0
	for d := range distinctDigits(digits) {
		if _, ok := goldenSet[d]; ok {
			in++
		}
	}
	return in
}

// distinctDigits returns the set of digit values in s.
func distinctDigits(s string) map[byte]struct{} {
	set := make(map[byte]struct{}, len(s))
	for i := 0; i < len(s); i++ {
		set[s[i]] = struct{}{}
	}
	return set
}
