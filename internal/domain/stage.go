package domain

// Stage is one of the fixed pipeline phases shown on the progress timeline.
type Stage struct {
	Name  string `json:"name"`
	Agent string `json:"agent"`
	Icon  string `json:"icon"`
}

// Stages lists the pipeline phases in execution order.
var Stages = []Stage{
	{Name: "Planning", Agent: "Planner", Icon: "📋"},
	{Name: "Ingestion", Agent: "Data Engineer", Icon: "⚙️"},
	{Name: "Processing", Agent: "Preprocessing", Icon: "🧼"},
	{Name: "Modeling", Agent: "Data Scientist", Icon: "🧬"},
	{Name: "Insights", Agent: "Analyst", Icon: "🔍"},
	{Name: "Governance", Agent: "CDO", Icon: "🏛️"},
}

// StageCount is the number of pipeline stages.
var StageCount = len(Stages)

// FinalStep is the terminal value of the progress step counter.
func FinalStep() int {
	return StageCount - 1
}

// ProgressState is the locally simulated position on the progress timeline.
type ProgressState struct {
	Step       int    `json:"step"`
	InProgress bool   `json:"in_progress"`
	Generation uint64 `json:"generation"`
}
