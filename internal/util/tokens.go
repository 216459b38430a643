package util

import "strings"

// NormalizeTokens trims device tokens, drops blanks and duplicates, and keeps
// the first-seen order.
func NormalizeTokens(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Chunk splits tokens into slices of at most size elements.
func Chunk(tokens []string, size int) [][]string {
	if size <= 0 || len(tokens) <= size {
		if len(tokens) == 0 {
			return nil
		}
		return [][]string{tokens}
	}
	out := make([][]string, 0, (len(tokens)+size-1)/size)
	for len(tokens) > size {
		out = append(out, tokens[:size:size])
		tokens = tokens[size:]
	}
	return append(out, tokens)
}
