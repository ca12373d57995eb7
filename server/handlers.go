package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	tsanalysis "github.com/aouyang1/go-tsanalysis"
	"github.com/aouyang1/go-tsanalysis/artifact"
	"github.com/aouyang1/go-tsanalysis/dataset"
	"github.com/aouyang1/go-tsanalysis/dateparse"
	"github.com/aouyang1/go-tsanalysis/timedataset"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
)

const uploadField = "file"

type uploadResponse struct {
	Status  string   `json:"status"`
	ID      string   `json:"id"`
	Rows    int      `json:"rows"`
	Columns []string `json:"columns"`
}

type schemaResponse struct {
	Rows    int                    `json:"rows"`
	Columns []string               `json:"columns"`
	Schema  []dataset.ColumnSchema `json:"schema"`
}

type timeSeriesBody struct {
	DateColumn      string `json:"date_column"`
	ValueColumn     string `json:"value_column"`
	Freq            string `json:"freq"`
	ForecastPeriods int    `json:"forecast_periods"`
}

type causalBody struct {
	XColumn string `json:"x_col"`
	YColumn string `json:"y_col"`
	MaxLag  int    `json:"maxlag"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opt.MaxUploadBytes)
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		s.writeError(w, r, status, err)
		return
	}
	defer file.Close()

	ds, err := dataset.Read(file, header.Filename)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	s.store.Set(ds)
	s.logger.Info("uploaded dataset", "name", header.Filename, "id", ds.ID, "rows", ds.NumRows())

	s.writeJSON(w, r, http.StatusOK, uploadResponse{
		Status:  "ok",
		ID:      ds.ID,
		Rows:    ds.NumRows(),
		Columns: ds.Columns(),
	})
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	ds, err := s.store.Current()
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, schemaResponse{
		Rows:    ds.NumRows(),
		Columns: ds.Columns(),
		Schema:  ds.Schema(),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.store.Invalidate()
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTimeSeries(w http.ResponseWriter, r *http.Request) {
	var body timeSeriesBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	ds, err := s.store.Current()
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}

	req := tsanalysis.TimeSeriesRequest{
		DateColumn:  body.DateColumn,
		ValueColumn: body.ValueColumn,
		Frequency:   body.Freq,
		Horizon:     body.ForecastPeriods,
	}
	bundle, err := runWithContext(r.Context(), func() (*tsanalysis.DiagnosticBundle, error) {
		return tsanalysis.AnalyzeTimeSeries(ds, req, s.analysis)
	})
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, bundle)
}

func (s *Server) handleCausal(w http.ResponseWriter, r *http.Request) {
	var body causalBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	ds, err := s.store.Current()
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}

	req := tsanalysis.CausalRequest{
		XColumn: body.XColumn,
		YColumn: body.YColumn,
		MaxLag:  body.MaxLag,
	}
	res, err := runWithContext(r.Context(), func() (*tsanalysis.CausalResult, error) {
		return tsanalysis.AnalyzeCausality(ds, req, s.analysis)
	})
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	if s.analysis.Sink == nil {
		s.writeError(w, r, http.StatusNotFound, artifact.ErrNotFound)
		return
	}
	rc, err := s.analysis.Sink.Open(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Warn("unable to stream artifact", "error", err.Error())
	}
}

// runWithContext returns early with the context error if ctx ends before fn. fn keeps running
// in the background and its result is discarded.
func runWithContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()

	select {
	case res := <-ch:
		return res.v, res.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, dataset.ErrNoDataset):
		return http.StatusConflict
	case errors.Is(err, dataset.ErrColumnNotFound), errors.Is(err, artifact.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dateparse.ErrDateParse), errors.Is(err, dateparse.ErrEmptyAfterParse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, tsanalysis.ErrNoNumericValues),
		errors.Is(err, tsanalysis.ErrInvalidHorizon),
		errors.Is(err, tsanalysis.ErrInvalidMaxLag),
		errors.Is(err, timedataset.ErrUnknownFrequency),
		errors.Is(err, timedataset.ErrInvalidMultiple),
		errors.Is(err, artifact.ErrInvalidName),
		errors.Is(err, dataset.ErrUnsupportedFormat),
		errors.Is(err, dataset.ErrNoHeader),
		errors.Is(err, dataset.ErrEmptySheet),
		errors.Is(err, dataset.ErrNoColumns),
		errors.Is(err, dataset.ErrDuplicateColumn),
		errors.Is(err, dataset.ErrColumnLenMismatch):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("unable to encode response", "path", r.URL.Path, "error", err.Error())
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("unable to write response", "path", r.URL.Path, "error", err.Error())
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err.Error())
	}
	s.writeJSON(w, r, status, errorResponse{
		Error:     err.Error(),
		RequestID: middleware.GetReqID(r.Context()),
	})
}
