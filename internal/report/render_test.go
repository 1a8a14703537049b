package report

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vecbench/internal/domain"
)

func sample() []domain.ProviderReport {
	return []domain.ProviderReport{
		{
			ProviderName:     "pinecone",
			MAP:              0.5833,
			P50LatencyMs:     30,
			P95LatencyMs:     50,
			EstimatedCostUSD: 12.5,
			QueriesEvaluated: 40,
			ExcludedQueryIDs: []string{"q7", "q9"},
			FailedQueries:    1,
			RecordsIngested:  9998,
			RecordsAttempted: 10000,
		},
		{ProviderName: "memory", MAP: 1.0, QueriesEvaluated: 42, RecordsIngested: 10000, RecordsAttempted: 10000},
	}
}

func TestRenderTable_ContainsEveryProviderRow(t *testing.T) {
	out := RenderTable(sample())
	assert.Contains(t, out, "pinecone")
	assert.Contains(t, out, "memory")
	assert.Contains(t, out, "0.5833")
	assert.Contains(t, out, "9998/10000")
}

func TestRenderDetail_ReportsExclusions(t *testing.T) {
	out := RenderDetail(sample()[0])
	assert.Contains(t, out, "q7")
	assert.Contains(t, out, "q9")
	assert.Contains(t, out, "9998 of 10000")
}

func TestJSONLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.jsonl")
	in := sample()
	require.NoError(t, WriteJSONL(path, in))

	out, err := ReadJSONL(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
