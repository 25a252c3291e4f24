package routing

import "regexp"

var lidSuffixPattern = regexp.MustCompile(`^(.*)(_\d+@lid)$`)

// NormalizeMessageID strips a trailing "_<digits>@lid" segment that the
// protocol appends to quoted message ids. Ids without it are returned as is.
func NormalizeMessageID(id string) string {
	m := lidSuffixPattern.FindStringSubmatch(id)
	if m == nil || m[1] == "" {
		return id
	}
	return m[1]
}
