package tsanalysis

import (
	"github.com/aouyang1/go-tsanalysis/dateparse"
	"github.com/aouyang1/go-tsanalysis/forecast"
	"github.com/aouyang1/go-tsanalysis/stats"
	"github.com/goccy/go-json"
)

// ADFReport holds either the test result or the reason it could not be computed.
type ADFReport struct {
	Result *stats.ADFResult
	Error  string
}

func (a ADFReport) MarshalJSON() ([]byte, error) {
	if a.Result == nil {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{a.Error})
	}
	return json.Marshal(a.Result)
}

func (a *ADFReport) UnmarshalJSON(data []byte) error {
	var raw struct {
		Statistic *float64 `json:"statistic"`
		PValue    float64  `json:"p_value"`
		UsedLag   int      `json:"used_lag"`
		NObs      int      `json:"n_obs"`
		Error     string   `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = ADFReport{Error: raw.Error}
	if raw.Statistic != nil {
		a.Result = &stats.ADFResult{
			Statistic: *raw.Statistic,
			PValue:    raw.PValue,
			UsedLag:   raw.UsedLag,
			NObs:      raw.NObs,
		}
	}
	return nil
}

// DiagnosticBundle is the result of AnalyzeTimeSeries. Optional parts that failed or were
// skipped are nil and serialize as null.
type DiagnosticBundle struct {
	NObs              int               `json:"n_obs"`
	Frequency         string            `json:"freq"`
	ParseInfo         dateparse.Outcome `json:"parse_info"`
	ADF               ADFReport         `json:"adf"`
	DecompositionPlot *string           `json:"decomposition_plot"`
	ForecastPlot      *string           `json:"forecast_plot"`
	ForecastState     forecast.State    `json:"forecast_state"`
	ForecastModel     string            `json:"forecast_model,omitempty"`
	Forecast          []forecast.Point  `json:"forecast"`
	ForecastError     string            `json:"forecast_error,omitempty"`
	FitScores         *forecast.Scores  `json:"fit_scores"`

	// ForecastFit carries the fitted parameters for table output and is not serialized.
	ForecastFit *forecast.Model `json:"-"`
}

// CausalResult is the result of AnalyzeCausality. GrangerPValues is keyed by lag and is absent
// when the test failed, in which case GrangerError holds the reason.
type CausalResult struct {
	Correlation    *float64           `json:"correlation"`
	GrangerPValues map[string]float64 `json:"granger_pvalues,omitempty"`
	GrangerError   string             `json:"granger_error,omitempty"`
	NObs           int                `json:"n_obs"`
}
