package lists

import (
	"strconv"
	"strings"
)

// ParseIDs splits csv on commas and returns every token that parses as a
// decimal integer accepted by [ValidID], in input order. Surrounding whitespace
// is trimmed; empty and malformed tokens are dropped. Duplicates are kept.
func ParseIDs(csv string) []int {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	var ids []int
	for tok := range strings.SplitSeq(csv, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		n, err := strconv.Atoi(tok)
		if err != nil || !ValidID(n) {
			continue
		}
		ids = append(ids, n)
	}
	return ids
}
