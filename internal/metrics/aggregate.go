package metrics

import (
	"fmt"
	"sort"
	"time"
)

// Align resamples a raw observation series onto a contiguous bucket grid
// covering the requested range at the requested granularity. The first
// bucket starts at the range start; observations outside the range are
// discarded. Delta-style sources sum within a bucket and fill gaps with
// zero; snapshot-style sources take the last value in a bucket and carry
// the previous value across gaps (zero before the first observation).
//
// Align is pure: it never mutates the input series and identical inputs
// always produce identical output.
func Align(series Series, r DateRange, g Granularity) ([]AggregatedPoint, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	switch g {
	case GranularityDaily, GranularityWeekly, GranularityMonthly:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedGranularity, g)
	}

	start := Day(r.Start)
	end := Day(r.End)

	// Clip to the range and sort a copy; providers promise ordered
	// unique-by-date series but the grid walk below depends on it.
	obs := make([]Observation, 0, len(series.Observations))
	for _, o := range series.Observations {
		d := Day(o.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		obs = append(obs, Observation{Date: d, Value: o.Value, Source: o.Source})
	}
	sort.Slice(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })

	kind := series.Source.Kind()

	var points []AggregatedPoint
	var carry float64
	idx := 0

	for cur := start; !cur.After(end); cur = nextBucket(cur, g) {
		bucketEnd := nextBucket(cur, g) // exclusive

		var sum, last float64
		seen := false
		for idx < len(obs) && obs[idx].Date.Before(bucketEnd) {
			sum += float64(obs[idx].Value)
			last = float64(obs[idx].Value)
			seen = true
			idx++
		}

		value := sum
		if kind == KindSnapshot {
			if seen {
				carry = last
			}
			value = carry
		}

		points = append(points, AggregatedPoint{BucketStart: cur, Value: value})
	}

	return points, nil
}

// nextBucket returns the start of the bucket following the one starting
// at cur. Weekly buckets are seven days; monthly buckets are calendar
// months anchored at the range start.
func nextBucket(cur time.Time, g Granularity) time.Time {
	switch g {
	case GranularityWeekly:
		return cur.AddDate(0, 0, 7)
	case GranularityMonthly:
		return cur.AddDate(0, 1, 0)
	default:
		return cur.AddDate(0, 0, 1)
	}
}

// MovingAverage returns a copy of points with the trailing arithmetic
// mean over window buckets populated. Early points with fewer than
// window preceding buckets average over the shorter available window,
// so the head of the series has no null gaps. Summation is
// left-to-right in bucket order for deterministic float results.
func MovingAverage(points []AggregatedPoint, window int) ([]AggregatedPoint, error) {
	if window < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWindow, window)
	}

	out := make([]AggregatedPoint, len(points))
	for i, p := range points {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}

		var sum float64
		for j := lo; j <= i; j++ {
			sum += points[j].Value
		}
		avg := sum / float64(i-lo+1)

		out[i] = AggregatedPoint{BucketStart: p.BucketStart, Value: p.Value, MovingAverage: &avg}
	}
	return out, nil
}

// Combine zips two aligned series for dual-axis display. Both inputs
// must share identical bucket boundaries; no numeric combination is
// performed.
func Combine(a, b []AggregatedPoint) ([]CombinedPoint, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: %d vs %d buckets", ErrMisalignedSeries, len(a), len(b))
	}

	out := make([]CombinedPoint, 0, len(a))
	for i := range a {
		if !a[i].BucketStart.Equal(b[i].BucketStart) {
			return nil, fmt.Errorf("%w: bucket %d starts at %s vs %s",
				ErrMisalignedSeries, i,
				a[i].BucketStart.Format(DateFormat), b[i].BucketStart.Format(DateFormat))
		}
		out = append(out, CombinedPoint{
			BucketStart: a[i].BucketStart,
			ValueA:      a[i].Value,
			ValueB:      b[i].Value,
		})
	}
	return out, nil
}
