package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	kSuffixRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)k`)
	numberRe  = regexp.MustCompile(`\d+`)
)

// ParseSalary extracts a currency-agnostic (min, max) pair from a raw salary
// string. "k"/"K" suffixes expand; a single figure becomes (v, v); the pair is
// always ordered min <= max. Both pointers are nil when nothing parses.
func ParseSalary(raw string) (*int, *int) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	cleaned := strings.NewReplacer(",", "", "$", "", "£", "", "€", "").Replace(raw)
	cleaned = kSuffixRe.ReplaceAllStringFunc(cleaned, func(m string) string {
		digits := kSuffixRe.FindStringSubmatch(m)[1]
		v, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			return m
		}
		return strconv.Itoa(int(v * 1000))
	})

	figures := numberRe.FindAllString(cleaned, 3)
	var numbers []int
	for _, f := range figures {
		v, err := strconv.Atoi(f)
		if err != nil {
			continue
		}
		// Tiny figures are hour counts or percent noise, not salaries.
		if v < 1000 {
			continue
		}
		numbers = append(numbers, v)
	}

	switch len(numbers) {
	case 0:
		return nil, nil
	case 1:
		v := numbers[0]
		return &v, &v
	default:
		lo, hi := numbers[0], numbers[1]
		if lo > hi {
			lo, hi = hi, lo
		}
		return &lo, &hi
	}
}
