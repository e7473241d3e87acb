// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"sort"
	"strings"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// FuzzyResult is the outcome of matching one string. Score is zero
// when the pattern does not match. Positions are rune indexes of the
// matched characters, ascending.
type FuzzyResult struct {
	Score     int
	Positions []int
}

// fzf's character classes and bonus matrix are empty until a scoring
// scheme is installed; without them upper-case text never matches.
func init() {
	algo.Init("default")
}

// NewSlab returns scratch space for repeated [FuzzyMatch] calls. A nil
// slab works but allocates on every call.
func NewSlab() *util.Slab {
	return util.MakeSlab(100*1024, 2048)
}

// FuzzyMatch scores text against pattern with fzf's V2 algorithm,
// ignoring case. An empty pattern matches everything with score 1.
func FuzzyMatch(text string, pattern []rune, slab *util.Slab) FuzzyResult {
	if len(pattern) == 0 {
		return FuzzyResult{Score: 1}
	}
	lowered := []rune(strings.ToLower(string(pattern)))
	chars := util.ToChars([]byte(text))
	result, positions := algo.FuzzyMatchV2(false, false, true, &chars, lowered, true, slab)
	if result.Start < 0 || result.Score <= 0 {
		return FuzzyResult{}
	}
	match := FuzzyResult{Score: result.Score}
	if positions != nil {
		match.Positions = append([]int(nil), *positions...)
		sort.Ints(match.Positions)
	}
	return match
}

// FilterRanked returns the indexes of items matching pattern, best
// score first. Ties keep their input order.
func FilterRanked(items []string, pattern string, slab *util.Slab) []int {
	type ranked struct {
		index int
		score int
	}
	runes := []rune(strings.TrimSpace(pattern))
	var matches []ranked
	for index, item := range items {
		if result := FuzzyMatch(item, runes, slab); result.Score > 0 {
			matches = append(matches, ranked{index: index, score: result.Score})
		}
	}
	if len(runes) > 0 {
		sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	}
	indexes := make([]int, len(matches))
	for position, match := range matches {
		indexes[position] = match.index
	}
	return indexes
}
