package match

import (
	"strconv"
	"strings"
)

// YearsRange is a parsed experience requirement, e.g. "2-4 years" → {2, 4}.
// A single number or a "3+" style requirement has Min == Max.
type YearsRange struct {
	Min int
	Max int
}

// ParseYears extracts the user's stated years of experience from free text
// such as "3 years" or "3-5 years" (the upper bound counts — a user with a
// range has at least been exposed up to it). Returns false when no number
// is present.
func ParseYears(s string) (int, bool) {
	r, ok := ParseYearsRange(s)
	if !ok {
		return 0, false
	}
	return r.Max, true
}

// ParseYearsRange extracts a years range from free text like "2-4 years",
// "3+ years", "5 years" or "senior (7-10 yrs)". Only the digits matter:
// the first number is the minimum, the second (when present) the maximum.
// Returns false for text with no digits at all.
func ParseYearsRange(s string) (YearsRange, bool) {
	nums := extractInts(s)
	switch len(nums) {
	case 0:
		return YearsRange{}, false
	case 1:
		return YearsRange{Min: nums[0], Max: nums[0]}, true
	default:
		lo, hi := nums[0], nums[1]
		if hi < lo {
			lo, hi = hi, lo
		}
		return YearsRange{Min: lo, Max: hi}, true
	}
}

// extractInts returns up to the first two unsigned integers found in s.
func extractInts(s string) []int {
	var nums []int
	var digits strings.Builder

	flush := func() {
		if digits.Len() == 0 {
			return
		}
		if n, err := strconv.Atoi(digits.String()); err == nil {
			nums = append(nums, n)
		}
		digits.Reset()
	}

	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
			continue
		}
		flush()
		if len(nums) == 2 {
			return nums
		}
	}
	flush()
	return nums
}
