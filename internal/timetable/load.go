package timetable

import (
	"math"
	"sort"
)

type loadBucket struct {
	minHours   float64
	minCredits float64
	periods    int
}

// Ordered from the heaviest bucket down; lower bounds are inclusive.
var loadBuckets = []loadBucket{
	{minHours: 100, minCredits: 60, periods: 8},
	{minHours: 70, minCredits: 40, periods: 6},
	{minHours: 40, minCredits: 20, periods: 4},
	{minHours: 0, minCredits: 0, periods: 2},
}

const practicalRatio = 0.6

// ClassifiedSubject is a SubjectLoad annotated with its weekly period count.
type ClassifiedSubject struct {
	SubjectLoad
	WeeklyPeriods int `json:"weeklyPeriods"`
}

// WeeklyPeriods derives how many periods per week a subject needs. It never
// fails: out-of-range inputs clamp to the nearest bucket.
func WeeklyPeriods(load SubjectLoad, examTerm bool) int {
	periods := basePeriods(load.AnnualHours, load.Credits)
	if load.AnnualHours > 0 && load.PracticalHours >= practicalRatio*load.AnnualHours {
		periods++
	}
	if load.IsExamSubject && examTerm {
		periods++
	}
	if periods < 0 {
		return 0
	}
	return periods
}

// basePeriods looks the bucket up by annual hours; credits only decide when the
// hours figure is unusable.
func basePeriods(hours, credits float64) int {
	if math.IsNaN(hours) {
		return bucketFor(func(b loadBucket) bool { return clampNonNegative(credits) >= b.minCredits })
	}
	hours = clampNonNegative(hours)
	return bucketFor(func(b loadBucket) bool { return hours >= b.minHours })
}

func bucketFor(match func(loadBucket) bool) int {
	for _, bucket := range loadBuckets {
		if match(bucket) {
			return bucket.periods
		}
	}
	return loadBuckets[len(loadBuckets)-1].periods
}

func clampNonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

// ClassifySubjects annotates every load with its weekly periods, sorted by
// subject id.
func ClassifySubjects(loads []SubjectLoad, examTerm bool) []ClassifiedSubject {
	out := make([]ClassifiedSubject, 0, len(loads))
	for _, load := range loads {
		out = append(out, ClassifiedSubject{SubjectLoad: load, WeeklyPeriods: WeeklyPeriods(load, examTerm)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubjectID < out[j].SubjectID })
	return out
}
