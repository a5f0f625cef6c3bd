package scoring

import (
	"cmp"
	"sort"
)

// Category identifies one of the quantitative prize categories.
type Category string

const (
	CategoryAvailability        Category = "Availability"
	CategoryConfirmationLatency Category = "ConfirmationLatency"
	CategoryRewardsEarned       Category = "RewardsEarned"
)

// NumTopWinners is the number of top prizes per category.
const NumTopWinners = 3

// Number is the set of score types the scorers produce.
type Number interface {
	~int64 | ~uint64 | ~float64
}

// Scored is a validator id paired with its score.
type Scored[T Number] struct {
	ID    ID
	Score T
}

// Winner is a ranked validator with its display string.
type Winner struct {
	ID      ID      `yaml:"id"`
	Score   float64 `yaml:"score"`
	Display string  `yaml:"display"`
}

// Bucket is a named group of winners.
type Bucket struct {
	Name    string   `yaml:"name"`
	Winners []Winner `yaml:"winners"`
}

// Winners is the ranked output of one category.
type Winners struct {
	Category      Category `yaml:"category"`
	Label         string   `yaml:"label,omitempty"` // e.g. "Baseline: 97.000% availability"
	TopWinners    []Winner `yaml:"top_winners"`
	BucketWinners []Bucket `yaml:"bucket_winners"`
}

// Formatter renders a score for display.
type Formatter[T Number] func(score T) string

// sortDescending orders results by score, highest first. Equal scores are ordered by id
// so that identical inputs always rank identically.
func sortDescending[T Number](results []Scored[T]) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return cmp.Less(results[i].ID, results[j].ID)
	})
}

// topResults returns the first min(NumTopWinners, len(results)) entries.
func topResults[T Number](results []Scored[T]) []Scored[T] {
	return results[:min(NumTopWinners, len(results))]
}

// normalizeWinners converts scored results into display winners.
func normalizeWinners[T Number](results []Scored[T], format Formatter[T]) []Winner {
	winners := make([]Winner, 0, len(results))
	for _, r := range results {
		winners = append(winners, Winner{ID: r.ID, Score: float64(r.Score), Display: format(r.Score)})
	}
	return winners
}

// excludeIDs drops every entry of scores whose key is in excluded.
func excludeIDs[T Number](scores map[ID]T, excluded map[ID]bool) []Scored[T] {
	results := make([]Scored[T], 0, len(scores))
	for id, score := range scores {
		if excluded[id] {
			continue
		}
		results = append(results, Scored[T]{ID: id, Score: score})
	}
	return results
}
