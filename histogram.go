package main

import "sort"

// Entry is one distinct token with its occurrence count. First is the
// position of its first occurrence and breaks ties in the ranking.
type Entry struct {
	Token Token
	Count int
	First int
}

// Histogram holds the distinct tokens ranked by count, most frequent
// first. Total is the number of tokens counted.
type Histogram struct {
	Ranked []Entry
	Total  int
}

// BuildHistogram counts tokens exactly. Equal counts keep first-seen order.
func BuildHistogram(tokens []Token) Histogram {
	pos := make(map[Token]int, len(tokens)/4+1)
	var entries []Entry
	for i, t := range tokens {
		if j, ok := pos[t]; ok {
			entries[j].Count++
			continue
		}
		pos[t] = len(entries)
		entries = append(entries, Entry{Token: t, Count: 1, First: i})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})

	return Histogram{Ranked: entries, Total: len(tokens)}
}

// Empty reports whether no token was counted.
func (h Histogram) Empty() bool { return h.Total == 0 }

// Top returns the most frequent token.
func (h Histogram) Top() (Token, bool) {
	if len(h.Ranked) == 0 {
		return "", false
	}
	return h.Ranked[0].Token, true
}
