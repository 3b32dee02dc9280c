package util

import (
	"fmt"
	"slices"
	"strings"
)

// SplitCommaSeparated splits each element of values on commas, trims
// whitespace and drops empty parts. Flags given as "-c a,b -c c" become
// [a b c].
func SplitCommaSeparated(values ...string) []string {
	var result []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				result = append(result, p)
			}
		}
	}
	return result
}

// CompactIDs renders ids in range notation: [0 1 2 3 5 7 8] -> "0-3,5,7-8".
// Input order and duplicates do not matter.
func CompactIDs(ids []uint32) string {
	if len(ids) == 0 {
		return ""
	}
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	var parts []string
	start, end := sorted[0], sorted[0]
	flush := func() {
		if start == end {
			parts = append(parts, fmt.Sprint(start))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", start, end))
		}
	}
	for _, id := range sorted[1:] {
		if id == end+1 {
			end = id
			continue
		}
		flush()
		start, end = id, id
	}
	flush()
	return strings.Join(parts, ",")
}
