package search

import (
	"strconv"
	"strings"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Query is the parsed form of what an operator types in the search box.
// It decouples the raw input from what the index engine needs.
type Query struct {
	RawInput string  // The original input
	Terms    string  // The text matched against message content
	OwnerID  *uint64 // Restricts hits to one conversation
	Limit    int     // Number of hits
}

// NewQuery parses a raw string with command-line style flags.
// Example: invoice refund --user 12 --limit 5
// Unknown flags and unparsable values are ignored.
func NewQuery(input string) Query {
	query := Query{RawInput: input, Limit: DefaultLimit}

	parts := strings.Fields(input)
	var terms []string

	for i := 0; i < len(parts); i++ {
		part := parts[i]

		if strings.HasPrefix(part, "--") && i+1 < len(parts) {
			key := strings.TrimPrefix(part, "--")
			val := parts[i+1]
			switch key {
			case "user":
				if id, err := strconv.ParseUint(val, 10, 64); err == nil && id > 0 {
					query.OwnerID = &id
				}
			case "limit":
				if limit, err := strconv.Atoi(val); err == nil && limit > 0 {
					query.Limit = min(limit, MaxLimit)
				}
			}
			i++ // Skip the value part
			continue
		}
		terms = append(terms, part)
	}

	query.Terms = strings.Join(terms, " ")
	return query
}
