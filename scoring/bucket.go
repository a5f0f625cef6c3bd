package scoring

// Baseline-relative bucket names.
const (
	HighBaselineBucket  = "Greater than 95% of the baseline"
	MidBaselineBucket   = "95 - 75% of the baseline"
	LowBaselineBucket   = "75 - 50% of the baseline"
	UnderBaselineBucket = "Less than 50% of the baseline"
)

// Percentile bucket names.
const (
	HighPercentileBucket   = "Top 25%"
	MediumPercentileBucket = "25% to 50%"
	LowPercentileBucket    = "50% to 90%"
	BottomPercentileBucket = "Bottom 10%"
)

// baselineBucketer groups results relative to a baseline score.
type baselineBucketer func(results []Scored[float64], baseline float64, format Formatter[float64]) []Bucket

// baselineFractions are the thresholds, relative to the baseline score, that separate the
// baseline buckets.
var baselineFractions = [3]float64{0.95, 0.75, 0.5}

// baselineBoundary returns one past the last index whose score is strictly greater than
// threshold. results must be sorted descending.
func baselineBoundary(results []Scored[float64], threshold float64) int {
	for i := len(results) - 1; i >= 0; i-- {
		if results[i].Score > threshold {
			return i + 1
		}
	}
	return 0
}

// baselineBoundaries returns the end index of each baseline bucket.
func baselineBoundaries(results []Scored[float64], baseline float64) [3]int {
	var ends [3]int
	for i, fraction := range baselineFractions {
		ends[i] = baselineBoundary(results, fraction*baseline)
		// A negative baseline inverts the thresholds; buckets never run backwards.
		if i > 0 && ends[i] < ends[i-1] {
			ends[i] = ends[i-1]
		}
	}
	return ends
}

// BaselineBuckets groups descending-sorted results relative to the baseline score:
// above 95%, 95-75% and 75-50%. Results at or below 50% of the baseline are not bucketed.
func BaselineBuckets(results []Scored[float64], baseline float64, format Formatter[float64]) []Bucket {
	ends := baselineBoundaries(results, baseline)
	return []Bucket{
		{Name: HighBaselineBucket, Winners: normalizeWinners(results[:ends[0]], format)},
		{Name: MidBaselineBucket, Winners: normalizeWinners(results[ends[0]:ends[1]], format)},
		{Name: LowBaselineBucket, Winners: normalizeWinners(results[ends[1]:ends[2]], format)},
	}
}

// BaselineBucketsWithRemainder is BaselineBuckets plus a trailing bucket holding every result
// at or below 50% of the baseline.
func BaselineBucketsWithRemainder(results []Scored[float64], baseline float64, format Formatter[float64]) []Bucket {
	ends := baselineBoundaries(results, baseline)
	return append(BaselineBuckets(results, baseline, format),
		Bucket{Name: UnderBaselineBucket, Winners: normalizeWinners(results[ends[2]:], format)})
}

// percentileBoundaries returns the inclusive last index of the top 25%, 25-50%, 50-90% and
// bottom 10% buckets. Each boundary is extended over ties so equal scores share a bucket.
// Returns nil for empty results.
func percentileBoundaries[T Number](results []Scored[T]) []int {
	n := len(results)
	if n == 0 {
		return nil
	}
	extendTies := func(index int) int {
		for index+1 < n && results[index].Score == results[index+1].Score {
			index++
		}
		return index
	}
	cuts := []int{n / 4, n / 2, 9 * n / 10, n}
	ends := make([]int, len(cuts))
	for i, cut := range cuts {
		ends[i] = extendTies(max(1, cut) - 1)
		if i > 0 && ends[i] < ends[i-1] {
			ends[i] = ends[i-1]
		}
	}
	return ends
}

// PercentileBuckets groups descending-sorted results into the top 25%, 25-50%, 50-90% and
// bottom 10% of validators without splitting ties across buckets.
func PercentileBuckets[T Number](results []Scored[T], format Formatter[T]) []Bucket {
	names := []string{HighPercentileBucket, MediumPercentileBucket, LowPercentileBucket, BottomPercentileBucket}
	buckets := make([]Bucket, len(names))
	ends := percentileBoundaries(results)
	start := 0
	for i, name := range names {
		buckets[i] = Bucket{Name: name, Winners: []Winner{}}
		if ends == nil {
			continue
		}
		buckets[i].Winners = normalizeWinners(results[start:ends[i]+1], format)
		start = ends[i] + 1
	}
	return buckets
}
