package ui

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, jobs []JobListItem) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, JobList(jobs).Render(context.Background(), &b))
	return b.String()
}

func TestJobListEmpty(t *testing.T) {
	html := render(t, nil)
	assert.Contains(t, html, "No jobs yet.")
	assert.NotContains(t, html, "<table>")
}

func TestJobListRows(t *testing.T) {
	merit := 0.25
	start := time.Now().Add(-time.Second)
	end := start.Add(1500 * time.Millisecond)

	html := render(t, []JobListItem{
		{ID: "a", State: "completed", Problem: "rosenbrock", Analysis: "rosenbrock",
			Evaluations: 600, BestMerit: &merit, Feasible: true, StartTime: start, EndTime: &end},
		{ID: "b", State: "failed", Problem: "quadratic", Analysis: "solver",
			StartTime: start, EndTime: &end, Error: "exit <1>"},
	})

	assert.Contains(t, html, `<tr class="completed"><td>a</td>`)
	assert.Contains(t, html, "<td>0.25</td>")
	assert.Contains(t, html, "<td>1.5s</td>")
	assert.Contains(t, html, "<td>-</td>")
	assert.Contains(t, html, "exit &lt;1&gt;")
}

func TestJobListStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var b strings.Builder
	err := JobList([]JobListItem{{ID: "a"}}).Render(ctx, &b)
	assert.ErrorIs(t, err, context.Canceled)
}
