package exam

import (
	"sort"
	"strconv"
)

const DefaultChartWindow = 10

type Summary struct {
	Count        int `json:"count"`
	AverageScore int `json:"averageScore"`
	TotalCorrect int `json:"totalCorrect"`
}

type ChartPoint struct {
	Label string `json:"label"`
	Score int    `json:"score"`
}

// Summarize aggregates results. The input order does not matter.
func Summarize(results []Result) Summary {
	var sum Summary
	total := 0
	for _, r := range results {
		sum.Count++
		total += r.Score
		sum.TotalCorrect += r.CorrectCount
	}
	sum.AverageScore = percent(total, sum.Count*100)
	return sum
}

// ChartSeries returns the last window results, oldest first, labelled
// "Test 1".."Test N".
func ChartSeries(results []Result, window int) []ChartPoint {
	if window <= 0 {
		window = DefaultChartWindow
	}
	sorted := append([]Result(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CompletedAt != sorted[j].CompletedAt {
			return sorted[i].CompletedAt < sorted[j].CompletedAt
		}
		return sorted[i].ID < sorted[j].ID
	})
	if len(sorted) > window {
		sorted = sorted[len(sorted)-window:]
	}
	out := make([]ChartPoint, len(sorted))
	for i, r := range sorted {
		out[i] = ChartPoint{Label: "Test " + strconv.Itoa(i+1), Score: r.Score}
	}
	return out
}
