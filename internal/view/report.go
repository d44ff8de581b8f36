package view

import (
	"strings"

	"github.com/xiaot623/gogo/nexus/internal/state"
)

// ReportEmpty is shown on the report tab before any run completes.
const ReportEmpty = "No results to show. Execute strategy to generate report."

// ReportView is the narrative briefing tab.
type ReportView struct {
	Available bool     `json:"available"`
	Title     string   `json:"title,omitempty"`
	RunID     string   `json:"run_id,omitempty"`
	Query     string   `json:"query,omitempty"`
	Insights  string   `json:"insights,omitempty"`
	Decision  string   `json:"decision,omitempty"`
	ReportURL string   `json:"report_url,omitempty"`
	Charts    []string `json:"charts,omitempty"`
	Empty     string   `json:"empty,omitempty"`
}

// Report builds the report tab. Artifact links are resolved against the
// backend base URL.
func Report(snap state.Snapshot, backendURL string) ReportView {
	if snap.Run == nil {
		return ReportView{Empty: ReportEmpty}
	}
	res := snap.Run.Result
	v := ReportView{
		Available: true,
		Title:     "Executive Briefing: Banking Risk Analysis",
		RunID:     snap.Run.RunID,
		Query:     snap.Run.Query,
		Insights:  res.Insights,
		Decision:  res.Decision,
	}
	if res.ReportPath != "" {
		v.ReportURL = ArtifactURL(backendURL, res.ReportPath)
	}
	for _, c := range res.Data.Charts {
		v.Charts = append(v.Charts, ArtifactURL(backendURL, c))
	}
	return v
}

// ArtifactURL joins the backend base URL and a relative artifact path.
func ArtifactURL(backendURL, path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	return strings.TrimSuffix(backendURL, "/") + "/" + strings.TrimPrefix(path, "/")
}
