package forecast

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-tsanalysis/models"
)

// Model is a serializable summary of a fitted ARIMA model and its in-sample scores.
type Model struct {
	Order        models.Order `json:"order"`
	TrainEndTime time.Time    `json:"train_end_time"`
	AR           []float64    `json:"ar"`
	MA           []float64    `json:"ma"`
	Mean         float64      `json:"mean"`
	Sigma2       float64      `json:"sigma2"`
	AIC          float64      `json:"aic"`
	BIC          float64      `json:"bic"`
	Scores       *Scores      `json:"scores"`
}

func NewModel(m *models.ARIMA, trainEnd time.Time) *Model {
	return &Model{
		Order:        m.Order(),
		TrainEndTime: trainEnd,
		AR:           m.ARCoef(),
		MA:           m.MACoef(),
		Mean:         m.Mean(),
		Sigma2:       m.Sigma2(),
		AIC:          m.AIC(),
		BIC:          m.BIC(),
	}
}

func (m *Model) String() string {
	if m == nil {
		return ""
	}
	return m.Order.String()
}

func indentExpand(indent string, growth int) string {
	return strings.Repeat(indent, growth)
}

func (m Model) TablePrint(w io.Writer, prefix, indent string) error {
	if _, err := fmt.Fprintf(w, "%s%sForecast: %s\n", prefix, indentExpand(indent, 0), m.Order); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sTraining End Time: %s\n", prefix, indentExpand(indent, 1), m.TrainEndTime); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sSigma2: %.3f    AIC: %.3f    BIC: %.3f\n",
		prefix, indentExpand(indent, 1), m.Sigma2, m.AIC, m.BIC); err != nil {
		return err
	}

	if m.Scores != nil {
		if _, err := fmt.Fprintf(w, "%s%sScores:\n", prefix, indentExpand(indent, 0)); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s%sMAPE: %.3f    MSE: %.3f    R2: %.3f\n",
			prefix, indentExpand(indent, 1),
			m.Scores.MAPE,
			m.Scores.MSE,
			m.Scores.R2,
		); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(w, "%s%sCoefficients:\n", prefix, indentExpand(indent, 0)); err != nil {
		return err
	}
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "%s%sTerm\tValue\t\n", prefix, indentExpand(indent, 1)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(tbl, "%s%smean\t%.3f\t\n", prefix, indentExpand(indent, 1), m.Mean); err != nil {
		return err
	}
	for i, c := range m.AR {
		if _, err := fmt.Fprintf(tbl, "%s%sar.L%d\t%.3f\t\n", prefix, indentExpand(indent, 1), i+1, c); err != nil {
			return err
		}
	}
	for i, c := range m.MA {
		if _, err := fmt.Fprintf(tbl, "%s%sma.L%d\t%.3f\t\n", prefix, indentExpand(indent, 1), i+1, c); err != nil {
			return err
		}
	}
	return tbl.Flush()
}
