// Package ui renders the HTML pages of the server.
package ui

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/a-h/templ"
)

// JobListItem is one row of the job list page.
type JobListItem struct {
	ID          string
	State       string
	Problem     string
	Analysis    string
	Evaluations int
	BestMerit   *float64
	Feasible    bool
	StartTime   time.Time
	EndTime     *time.Time
	Error       string
}

const pageHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Analysis exchange jobs</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
th, td { padding: 0.3em 0.8em; border-bottom: 1px solid #ddd; text-align: left; }
.failed { color: #b00; }
.completed { color: #070; }
</style>
</head>
<body>
<h1>Jobs</h1>
`

// JobList renders the table of jobs.
func JobList(jobs []JobListItem) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, pageHead); err != nil {
			return err
		}
		if len(jobs) == 0 {
			_, err := io.WriteString(w, "<p>No jobs yet.</p>\n</body>\n</html>\n")
			return err
		}

		if _, err := io.WriteString(w, "<table>\n<tr><th>ID</th><th>State</th><th>Problem</th><th>Analysis</th>"+
			"<th>Evaluations</th><th>Best merit</th><th>Feasible</th><th>Duration</th><th>Error</th></tr>\n"); err != nil {
			return err
		}
		for _, job := range jobs {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := jobRow(w, job); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</table>\n</body>\n</html>\n")
		return err
	})
}

func jobRow(w io.Writer, job JobListItem) error {
	merit := "-"
	if job.BestMerit != nil {
		merit = strconv.FormatFloat(*job.BestMerit, 'g', 8, 64)
	}
	end := time.Now()
	if job.EndTime != nil {
		end = *job.EndTime
	}

	_, err := fmt.Fprintf(w, "<tr class=\"%s\"><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%d</td><td>%s</td><td>%t</td><td>%s</td><td>%s</td></tr>\n",
		templ.EscapeString(job.State),
		templ.EscapeString(job.ID),
		templ.EscapeString(job.State),
		templ.EscapeString(job.Problem),
		templ.EscapeString(job.Analysis),
		job.Evaluations,
		merit,
		job.Feasible,
		end.Sub(job.StartTime).Round(time.Millisecond),
		templ.EscapeString(job.Error),
	)
	return err
}
