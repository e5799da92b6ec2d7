package search

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
	"github.com/duynguyendang/routescan/pkg/routes"
)

// DefaultLimit caps FindRoutes results when the caller passes 0.
const DefaultLimit = 10

// threshold filters out irrelevant results.
const threshold = 0.3

// Match is a route with its similarity score.
type Match struct {
	Route routes.Route `json:"route"`
	Score float64      `json:"score"`
}

// FindRoutes ranks routes by similarity between the query and
// "METHOD path". It combines exact/substring matches, Levenshtein
// distance and token-wise fuzzy matching.
func FindRoutes(query string, rs []routes.Route, limit int) []Match {
	query = strings.TrimSpace(query)
	if query == "" || len(rs) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	queryLower := strings.ToLower(query)
	queryTokens := tokenize(queryLower)

	var results []Match
	for _, r := range rs {
		score := calculateScore(queryLower, queryTokens, key(r))
		if score > threshold {
			results = append(results, Match{Route: r, Score: score})
		}
	}

	// Sort by score descending; equal scores keep input order
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func key(r routes.Route) string {
	return string(r.Method) + " " + r.Path
}

// calculateScore returns a similarity score between 0 and 1.
func calculateScore(queryLower string, queryTokens map[string]bool, candidate string) float64 {
	candLower := strings.ToLower(candidate)

	// 1. Exact match bonus
	if queryLower == candLower {
		return 1.0
	}
	if strings.Contains(candLower, queryLower) {
		return 0.95
	}

	// 2. Levenshtein similarity over the whole string
	levDist := levenshtein.Distance(queryLower, candLower, nil)
	maxLen := float64(len(queryLower))
	if len(candLower) > int(maxLen) {
		maxLen = float64(len(candLower))
	}
	globalLevScore := 1.0 - (float64(levDist) / maxLen)
	if globalLevScore < 0 {
		globalLevScore = 0
	}

	// 3. Best fuzzy match per query token
	candTokens := tokenize(candLower)
	totalTokenScore := 0.0
	for qToken := range queryTokens {
		bestTokenScore := 0.0
		if candTokens[qToken] {
			bestTokenScore = 1.0
		} else {
			for cToken := range candTokens {
				dist := levenshtein.Distance(qToken, cToken, nil)
				tMax := float64(len(qToken))
				if len(cToken) > int(tMax) {
					tMax = float64(len(cToken))
				}
				score := 1.0 - (float64(dist) / tMax)
				if score > bestTokenScore {
					bestTokenScore = score
				}
			}
		}
		totalTokenScore += bestTokenScore
	}

	tokenScore := 0.0
	if len(queryTokens) > 0 {
		tokenScore = totalTokenScore / float64(len(queryTokens))
	}

	return math.Max(globalLevScore, tokenScore)
}

// tokenize splits a string into unique lower-case tokens on
// non-alphanumeric characters. Short tokens are kept only for short input.
func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		token := strings.ToLower(current.String())
		if len(token) > 2 || len(s) < 10 {
			tokens[token] = true
		}
		current.Reset()
	}

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) {
			flush()
			continue
		}
		current.WriteRune(r)
	}
	flush()
	return tokens
}
