package service

import (
	"strings"
	"testing"
	"time"

	"prompt-runner/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeLogStats(t *testing.T) {
	logs := []model.ExecutionLog{
		{ID: "1", Items: []model.ExecutionLogItem{
			{ItemID: "a", ItemTitle: "A", Success: true},
			{ItemID: "b", ItemTitle: "B", Success: false},
		}},
		{ID: "2", Items: []model.ExecutionLogItem{
			{ItemID: "a", ItemTitle: "A", Success: false},
		}},
	}

	st := ComputeLogStats(logs)
	assert.Equal(t, 2, st.Runs)
	assert.Equal(t, 3, st.Overall.N)
	assert.Equal(t, 2, st.Overall.Failed)

	require.Len(t, st.Templates, 2)
	assert.Equal(t, "a", st.Templates[0].ItemID)
	assert.Equal(t, 2, st.Templates[0].N)
	assert.InDelta(t, 0.5, st.Templates[0].FailureRate, 1e-9)
	assert.Less(t, st.Templates[0].CI95Low, 0.5)
	assert.Greater(t, st.Templates[0].CI95High, 0.5)
	assert.Equal(t, 1.0, st.Templates[1].FailureRate)
}

func TestComputeLogStats_Empty(t *testing.T) {
	st := ComputeLogStats(nil)
	assert.Zero(t, st.Overall.N)
	assert.Empty(t, st.Templates)
}

func TestWilsonCI_Bounds(t *testing.T) {
	lo, hi := wilsonCI(0, 10, 1.96)
	assert.InDelta(t, 0.0, lo, 1e-9)
	assert.Greater(t, hi, 0.0)

	lo, hi = wilsonCI(10, 10, 1.96)
	assert.Less(t, lo, 1.0)
	assert.InDelta(t, 1.0, hi, 1e-9)
}

func TestRenderRunMarkdown(t *testing.T) {
	facts := "・budget is fixed"
	md := RenderRunMarkdown(model.ExecutionLog{
		ID:             "log-1",
		ExecutedAt:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		InputText:      "the input",
		ExtractedFacts: &facts,
		Items: []model.ExecutionLogItem{
			{ItemTitle: "Summary", ResultContent: "short", Success: true, UserNote: "brief"},
			{ItemTitle: "SWOT", Success: false, ErrorMessage: "API call error: boom"},
		},
	})

	assert.True(t, strings.HasPrefix(md, "# Prompt Runner results"))
	assert.Contains(t, md, "2026-01-02T03:04:05Z")
	assert.Contains(t, md, "1 of 2 items succeeded")
	assert.Contains(t, md, "## Extracted facts\n\n・budget is fixed")
	assert.Contains(t, md, "> note: brief")
	assert.Contains(t, md, "**Error**: API call error: boom")
}
