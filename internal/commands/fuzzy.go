package commands

import "strings"

// maxEditDistance returns how many typo edits an alias of the given
// length tolerates. Short aliases get a tight budget so "gpt" does not
// absorb unrelated three-letter words.
func maxEditDistance(aliasLen int) int {
	switch {
	case aliasLen <= 4:
		return 1
	case aliasLen <= 8:
		return 2
	default:
		return 3
	}
}

// lengthDiffGate is the cheap pre-filter: candidates whose length differs
// from the alias by more than this never reach the edit-distance pass.
const lengthDiffGate = 3

// minFuzzyLen is the shortest candidate eligible for fuzzy matching.
// One-character tokens only ever match exactly.
const minFuzzyLen = 2

// ratioThreshold is the similarity floor for the fallback pass.
const ratioThreshold = 0.7

// editDistance computes the Levenshtein distance between two strings
// using the two-row rolling table.
func editDistance(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// similarityRatio measures how alike two strings are as
// 2*LCS/(len(a)+len(b)), in [0,1]. Catches transposition-heavy typos
// that blow the edit-distance budget but still clearly target an alias.
func similarityRatio(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	lcs := longestCommonSubsequence(a, b)
	return 2 * float64(lcs) / float64(len(a)+len(b))
}

func longestCommonSubsequence(a, b string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
		clear(curr)
	}
	return prev[len(b)]
}

// matchAlias resolves a candidate phrase against the registry. Exact
// matches win outright; otherwise every alias is scored by edit distance
// within its budget, and if that pass finds nothing a similarity-ratio
// pass runs as a last resort. Earlier-registered aliases win ties.
func (r *Registry) matchAlias(candidate string) *Definition {
	candidate = NormalizeAlias(candidate)
	if candidate == "" {
		return nil
	}

	if def := r.ResolveAlias(candidate); def != nil {
		return def
	}

	// "checkwhatsapp" should hit the alias "check whatsapp".
	squeezed := strings.ReplaceAll(candidate, " ", "")
	var exact *Definition
	r.walk(func(alias string, def *Definition) bool {
		if strings.ReplaceAll(alias, " ", "") == squeezed {
			exact = def
			return false
		}
		return true
	})
	if exact != nil {
		return exact
	}

	if len(squeezed) < minFuzzyLen {
		return nil
	}

	bestDist := -1
	var bestDef *Definition
	r.walk(func(alias string, def *Definition) bool {
		key := strings.ReplaceAll(alias, " ", "")
		if abs(len(key)-len(squeezed)) > lengthDiffGate {
			return true
		}
		d := editDistance(squeezed, key)
		if d <= maxEditDistance(len(key)) && (bestDist == -1 || d < bestDist) {
			bestDist = d
			bestDef = def
		}
		return true
	})
	if bestDef != nil {
		return bestDef
	}

	// The ratio pass keeps the same length gate: a candidate four or
	// more characters off an alias is another word, however similar.
	bestRatio := ratioThreshold
	r.walk(func(alias string, def *Definition) bool {
		key := strings.ReplaceAll(alias, " ", "")
		if abs(len(key)-len(squeezed)) > lengthDiffGate {
			return true
		}
		if ratio := similarityRatio(squeezed, key); ratio > bestRatio {
			bestRatio = ratio
			bestDef = def
		}
		return true
	})
	return bestDef
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
