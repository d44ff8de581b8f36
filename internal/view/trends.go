package view

import (
	"github.com/xiaot623/gogo/nexus/internal/domain"
)

const (
	// BarScale converts avg_risk into bar height in pixels.
	BarScale = 240.0
	// BaseOpacity is the opacity of the oldest bar.
	BaseOpacity = 0.3
	// DeltaLabel is the fixed period-over-period label on the headline.
	DeltaLabel = "+8.4%"
)

// TrendsView is the strategic risk trends tab.
type TrendsView struct {
	Bars          []TrendBar `json:"bars"`
	FraudCases    int        `json:"fraud_cases"`
	DeltaLabel    string     `json:"delta_label"`
	DeltaUp       bool       `json:"delta_up"`
	MonitorStatus string     `json:"monitor_status"`
}

// TrendBar is one bar of the average-risk chart.
type TrendBar struct {
	Timestamp string  `json:"timestamp,omitempty"`
	AvgRisk   float64 `json:"avg_risk"`
	HeightPx  float64 `json:"height_px"`
	Opacity   float64 `json:"opacity"`
}

// Trends builds the bar series: height scales linearly with avg_risk and
// opacity rises with recency. The headline is the latest fraud_cases.
func Trends(points []domain.TrendPoint) TrendsView {
	v := TrendsView{
		Bars:          make([]TrendBar, len(points)),
		DeltaLabel:    DeltaLabel,
		DeltaUp:       len(points) > 1,
		MonitorStatus: "Continuous Monitoring: ACTIVE (Baseline-XP4)",
	}
	for i, p := range points {
		v.Bars[i] = TrendBar{
			Timestamp: p.Timestamp,
			AvgRisk:   p.AvgRisk,
			HeightPx:  p.AvgRisk * BarScale,
			Opacity:   BaseOpacity + float64(i)/float64(len(points)),
		}
	}
	if n := len(points); n > 0 {
		v.FraudCases = points[n-1].FraudCases
	}
	return v
}
