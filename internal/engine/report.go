package engine

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"sort"
	"time"
)

// TaskReport is the per-task line of a build report.
type TaskReport struct {
	Name       string  `json:"name"`
	Output     string  `json:"output"`
	State      State   `json:"state"`
	Cached     bool    `json:"cached"`
	Key        string  `json:"key,omitempty"`
	Size       int     `json:"size"`
	DurationMS float64 `json:"duration_ms"`
	Error      string  `json:"error,omitempty"`
}

// Report is what the editor and CLI consume after a build.
type Report struct {
	Success    bool         `json:"success"`
	Finished   time.Time    `json:"finished"`
	DurationMS float64      `json:"duration_ms"`
	Tasks      []TaskReport `json:"tasks"`
	Failed     []TaskReport `json:"failed,omitempty"`
	Excluded   []string     `json:"excluded,omitempty"`
	TotalSize  int          `json:"total_size"`
}

// NewReport summarizes res. Tasks are sorted by output path.
func NewReport(res *Result, excluded []string) *Report {
	rep := &Report{
		Success:    res.Success(),
		Finished:   time.Now().UTC(),
		DurationMS: ms(res.Duration),
		Excluded:   append([]string(nil), excluded...),
	}
	for _, t := range res.Tasks {
		tr := TaskReport{
			Name:       t.Name,
			Output:     t.Output,
			State:      t.State,
			Cached:     t.Cached,
			Key:        string(t.Key),
			Size:       len(t.Data),
			DurationMS: ms(t.Duration),
		}
		if t.Err != nil {
			tr.Error = t.Err.Error()
		}
		rep.Tasks = append(rep.Tasks, tr)
		rep.TotalSize += tr.Size
		if t.State != Done {
			rep.Failed = append(rep.Failed, tr)
		}
	}
	sort.Slice(rep.Tasks, func(i, j int) bool { return rep.Tasks[i].Output < rep.Tasks[j].Output })
	sort.Slice(rep.Failed, func(i, j int) bool { return rep.Failed[i].Output < rep.Failed[j].Output })
	return rep
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshal: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Build report</title>
<style>
body { font-family: sans-serif; }
table { border-collapse: collapse; }
td, th { padding: 2px 8px; text-align: left; }
.failed, .skipped { color: #b00; }
</style>
</head>
<body>
<h1>Build {{if .Success}}succeeded{{else}}failed{{end}}</h1>
<p>{{len .Tasks}} tasks, {{.TotalSize}} bytes, {{printf "%.1f" .DurationMS}} ms</p>
{{if .Failed}}<h2>Failures</h2>
<ul>{{range .Failed}}<li class="{{.State}}">{{.Name}}: {{.Error}}</li>{{end}}</ul>{{end}}
<h2>Resources</h2>
<table>
<tr><th>Output</th><th>State</th><th>Cached</th><th>Size</th><th>Time (ms)</th></tr>
{{range .Tasks}}<tr class="{{.State}}"><td>{{.Output}}</td><td>{{.State}}</td><td>{{.Cached}}</td><td>{{.Size}}</td><td>{{printf "%.2f" .DurationMS}}</td></tr>
{{end}}</table>
{{if .Excluded}}<h2>Excluded</h2>
<ul>{{range .Excluded}}<li>{{.}}</li>{{end}}</ul>{{end}}
</body>
</html>
`))

// WriteHTML renders the report as a standalone HTML page.
func (r *Report) WriteHTML(w io.Writer) error {
	if err := reportTemplate.Execute(w, r); err != nil {
		return fmt.Errorf("report: render: %w", err)
	}
	return nil
}
