// Package eval turns per-query search results into a ProviderReport:
// mean average precision, nearest-rank latency percentiles, and an
// estimated cost from a configured pricing table.
package eval

import (
	"math"
	"sort"

	"vecbench/internal/domain"
)

// Pricing is one provider's cost table. Supplied via configuration,
// never hardcoded.
type Pricing struct {
	BaseUSD      float64 `yaml:"base_usd"`
	PerRecordUSD float64 `yaml:"per_record_usd"`
	PerQueryUSD  float64 `yaml:"per_query_usd"`
}

// AveragePrecision computes AP for one ranked list against a relevant
// set. Relevant ids missing from the ranking contribute zero; the
// denominator is the size of the relevant set. NaN-free: an empty
// relevant set yields 0.
func AveragePrecision(ranked []string, relevant map[string]struct{}) float64 {
	if len(relevant) == 0 {
		return 0
	}
	hits := 0
	sum := 0.0
	seen := make(map[string]struct{}, len(ranked))
	for i, id := range ranked {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := relevant[id]; ok {
			hits++
			sum += float64(hits) / float64(i+1)
		}
	}
	return sum / float64(len(relevant))
}

// NearestRankPercentile returns the p-th percentile of values using the
// nearest-rank method: rank = ceil(p/100 * N) over the ascending sort,
// no interpolation. Deterministic for any input order.
func NearestRankPercentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	rank := int(math.Ceil(p / 100.0 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

// EstimateCost prices a run from record and query counts.
func EstimateCost(pricing Pricing, records, queries int) float64 {
	return pricing.BaseUSD + pricing.PerRecordUSD*float64(records) + pricing.PerQueryUSD*float64(queries)
}

// Evaluate assembles the per-provider report. Queries without judgments
// and failed searches are excluded from MAP and listed explicitly;
// latency percentiles cover every issued search, failed calls included,
// since a timeout's wall time is part of the measured workload.
func Evaluate(providerName string, results []domain.SearchResult, judgments map[string]domain.QueryJudgment, ingest domain.IngestReport, pricing Pricing) domain.ProviderReport {
	report := domain.ProviderReport{
		ProviderName:     providerName,
		RecordsIngested:  ingest.Succeeded,
		RecordsAttempted: ingest.Attempted,
	}

	var apSum float64
	var latencies []float64
	for _, res := range results {
		latencies = append(latencies, res.LatencyMs)
		if res.Err != nil {
			report.FailedQueries++
			report.ExcludedQueryIDs = append(report.ExcludedQueryIDs, res.QueryID)
			continue
		}
		judgment, ok := judgments[res.QueryID]
		if !ok || len(judgment.RelevantChunkIDs) == 0 {
			report.ExcludedQueryIDs = append(report.ExcludedQueryIDs, res.QueryID)
			continue
		}
		apSum += AveragePrecision(res.RankedChunkIDs, judgment.RelevantChunkIDs)
		report.QueriesEvaluated++
	}
	sort.Strings(report.ExcludedQueryIDs)

	if report.QueriesEvaluated > 0 {
		report.MAP = apSum / float64(report.QueriesEvaluated)
	}
	report.P50LatencyMs = NearestRankPercentile(latencies, 50)
	report.P95LatencyMs = NearestRankPercentile(latencies, 95)
	report.EstimatedCostUSD = EstimateCost(pricing, ingest.Succeeded, len(results))
	return report
}
