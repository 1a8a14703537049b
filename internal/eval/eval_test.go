package eval

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"vecbench/internal/domain"
)

func relevant(ids ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func TestAveragePrecision_Reference(t *testing.T) {
	// judgments {c1,c2}, ranking [c3,c1,c2] -> (1/2 + 2/3)/2
	ap := AveragePrecision([]string{"c3", "c1", "c2"}, relevant("c1", "c2"))
	assert.InDelta(t, (0.5+2.0/3.0)/2.0, ap, 1e-12)
}

func TestAveragePrecision_Bounds(t *testing.T) {
	// all relevant ids first -> 1.0
	assert.Equal(t, 1.0, AveragePrecision([]string{"c1", "c2", "c9"}, relevant("c1", "c2")))
	// nothing relevant retrieved -> 0
	assert.Equal(t, 0.0, AveragePrecision([]string{"x", "y"}, relevant("c1")))
	// missing relevant ids pull the average down via the denominator
	ap := AveragePrecision([]string{"c1"}, relevant("c1", "gone"))
	assert.InDelta(t, 0.5, ap, 1e-12)
	// empty relevant set contributes zero, not NaN
	assert.Equal(t, 0.0, AveragePrecision([]string{"c1"}, nil))
}

func TestNearestRankPercentile_Reference(t *testing.T) {
	lat := []float64{10, 20, 30, 40, 50}
	assert.Equal(t, 30.0, NearestRankPercentile(lat, 50))
	assert.Equal(t, 50.0, NearestRankPercentile(lat, 95))
	assert.Equal(t, 10.0, NearestRankPercentile(lat, 1))
	assert.Equal(t, 50.0, NearestRankPercentile(lat, 100))
	assert.Equal(t, 0.0, NearestRankPercentile(nil, 50))
	// order-independent
	assert.Equal(t, 30.0, NearestRankPercentile([]float64{50, 10, 40, 30, 20}, 50))
}

func TestEstimateCost(t *testing.T) {
	p := Pricing{BaseUSD: 5, PerRecordUSD: 0.001, PerQueryUSD: 0.01}
	assert.InDelta(t, 5+10+1, EstimateCost(p, 10000, 100), 1e-9)
	assert.Equal(t, 0.0, EstimateCost(Pricing{}, 10000, 100))
}

func TestEvaluate_FullReport(t *testing.T) {
	judgments := map[string]domain.QueryJudgment{
		"q1": {QueryID: "q1", RelevantChunkIDs: relevant("c1", "c2")},
		"q2": {QueryID: "q2", RelevantChunkIDs: relevant("c5")},
		"q3": {QueryID: "q3", RelevantChunkIDs: relevant()}, // zero judgments
	}
	results := []domain.SearchResult{
		{QueryID: "q1", RankedChunkIDs: []string{"c3", "c1", "c2"}, LatencyMs: 20},
		{QueryID: "q2", RankedChunkIDs: []string{"c5"}, LatencyMs: 10},
		{QueryID: "q3", RankedChunkIDs: []string{"c9"}, LatencyMs: 30},
		{QueryID: "q4", LatencyMs: 5, Err: fmt.Errorf("timeout")},
	}
	ingest := domain.IngestReport{Provider: "memory", Attempted: 10, Succeeded: 7, Failed: 3}

	report := Evaluate("memory", results, judgments, ingest, Pricing{PerQueryUSD: 0.5})

	assert.Equal(t, "memory", report.ProviderName)
	assert.Equal(t, 2, report.QueriesEvaluated)
	assert.InDelta(t, ((0.5+2.0/3.0)/2.0+1.0)/2.0, report.MAP, 1e-12)
	assert.GreaterOrEqual(t, report.MAP, 0.0)
	assert.LessOrEqual(t, report.MAP, 1.0)

	// q3 (no judgments) and q4 (failed) are reported, not dropped
	assert.ElementsMatch(t, []string{"q3", "q4"}, report.ExcludedQueryIDs)
	assert.Equal(t, 1, report.FailedQueries)

	// latencies cover every issued search: [5,10,20,30]
	assert.Equal(t, 10.0, report.P50LatencyMs)
	assert.Equal(t, 30.0, report.P95LatencyMs)

	assert.Equal(t, 7, report.RecordsIngested)
	assert.Equal(t, 10, report.RecordsAttempted)
	assert.InDelta(t, 2.0, report.EstimatedCostUSD, 1e-9)
}

func TestEvaluate_FailedSearchLatencyCounted(t *testing.T) {
	// a timed-out call's wall time belongs in the percentiles even
	// though its (empty) ranking is excluded from MAP
	judgments := map[string]domain.QueryJudgment{
		"q1": {QueryID: "q1", RelevantChunkIDs: relevant("c1")},
	}
	results := []domain.SearchResult{
		{QueryID: "q1", RankedChunkIDs: []string{"c1"}, LatencyMs: 10},
		{QueryID: "q2", LatencyMs: 5000, Err: fmt.Errorf("deadline exceeded")},
	}
	report := Evaluate("qdrant", results, judgments, domain.IngestReport{}, Pricing{})
	assert.Equal(t, 1, report.FailedQueries)
	assert.Equal(t, 1, report.QueriesEvaluated)
	assert.Equal(t, 10.0, report.P50LatencyMs)
	assert.Equal(t, 5000.0, report.P95LatencyMs)
}

func TestEvaluate_PartialIngestDoesNotCrash(t *testing.T) {
	// a query whose only relevant chunk failed to ingest simply scores 0
	judgments := map[string]domain.QueryJudgment{
		"q1": {QueryID: "q1", RelevantChunkIDs: relevant("failed-id")},
	}
	results := []domain.SearchResult{
		{QueryID: "q1", RankedChunkIDs: []string{"c1", "c2"}, LatencyMs: 12},
	}
	ingest := domain.IngestReport{Attempted: 10, Succeeded: 7, FailedIDs: []string{"failed-id"}}

	report := Evaluate("qdrant", results, judgments, ingest, Pricing{})
	assert.Equal(t, 1, report.QueriesEvaluated)
	assert.Equal(t, 0.0, report.MAP)
}

func TestEvaluate_NoResults(t *testing.T) {
	report := Evaluate("pinecone", nil, nil, domain.IngestReport{}, Pricing{})
	assert.Equal(t, 0, report.QueriesEvaluated)
	assert.Equal(t, 0.0, report.MAP)
	assert.Equal(t, 0.0, report.P50LatencyMs)
}
