package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ledgerinsight/internal/amqp"
	"ledgerinsight/internal/core"
	"ledgerinsight/internal/insight"
	"ledgerinsight/internal/ledger"
	"ledgerinsight/internal/log"
	"ledgerinsight/internal/metrics"
)

// request is the per-call evaluation context: the engine frozen at one
// instant, the resolved period and the ledger snapshot.
type request struct {
	engine *insight.Engine
	period core.Period
	txs    []core.Transaction
	params QueryParams
}

// prepare parses the query, freezes the clock and loads the ledger.
func (s *Server) prepare(ctx context.Context, r *http.Request) (*request, error) {
	params, err := ParseQueryParams(r.URL.Query())
	if err != nil {
		return nil, err
	}

	now := params.Now
	if now.IsZero() {
		now = s.engine.Now()
	}
	engine := s.engine.At(now).WithOutlierFactor(params.Factor)
	if params.Period.Mode == "" {
		params.Period.Mode = engine.Options().PeriodMode
	}

	if s.ledger == nil {
		return nil, errors.New("ledger not configured")
	}
	txs, err := s.ledger.Transactions(ctx)
	if err != nil {
		metrics.LedgerLoadErrors.Inc()
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	return &request{
		engine: engine,
		period: engine.Period(params.Period),
		txs:    txs,
		params: params,
	}, nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, ErrBadRequest) {
		log.LogError(r.Context(), "Request failed", err, log.OpLoad, nil)
	}
	FromError(err).Write(w)
}

type periodResponse struct {
	Period core.Period `json:"period"`
	Mode   string      `json:"mode"`
	Now    time.Time   `json:"now"`
}

func (s *Server) handlePeriod(w http.ResponseWriter, r *http.Request) {
	params, err := ParseQueryParams(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	now := params.Now
	if now.IsZero() {
		now = s.engine.Now()
	}
	if params.Period.Mode == "" {
		params.Period.Mode = s.engine.Options().PeriodMode
	}
	NewJSONResponse().Data(periodResponse{
		Period: s.engine.At(now).Period(params.Period),
		Mode:   string(params.Period.Mode),
		Now:    now,
	}).Write(w)
}

func (s *Server) handleInstallments(w http.ResponseWriter, r *http.Request) {
	req, err := s.prepare(r.Context(), r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Data(req.engine.Installments(req.txs, req.period)).Write(w)
}

type activeResponse struct {
	Items []core.Installment `json:"items"`
	Now   time.Time          `json:"now"`
}

func (s *Server) handleActiveInstallments(w http.ResponseWriter, r *http.Request) {
	req, err := s.prepare(r.Context(), r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Data(activeResponse{
		Items: req.engine.ActiveInstallments(req.txs),
		Now:   req.engine.Now(),
	}).Write(w)
}

func (s *Server) handleRecurring(w http.ResponseWriter, r *http.Request) {
	req, err := s.prepare(r.Context(), r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Data(req.engine.Recurring(req.txs, req.period)).Write(w)
}

func (s *Server) handleOutliers(w http.ResponseWriter, r *http.Request) {
	req, err := s.prepare(r.Context(), r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Data(req.engine.Outliers(req.txs, req.period, 0)).Write(w)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	req, err := s.prepare(r.Context(), r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	report := req.engine.Report(req.txs, req.params.Period)
	metrics.ObserveReport(metrics.SourceHTTP, started, report)

	fields := log.NewFields().
		WithOperation(log.OpReport).
		WithReport(report.Period.Start.Format(time.RFC3339), report.Period.End.Format(time.RFC3339),
			len(req.txs), len(report.Installments.Items), len(report.Recurring.Items), len(report.Outliers.Items))
	log.FromContext(r.Context()).DebugContext(r.Context(), "Report computed", fields.ToSlice()...)

	NewJSONResponse().Data(report).Write(w)
}

type createdResponse struct {
	ID          string           `json:"id"`
	Transaction core.Transaction `json:"transaction"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tx, err := ParseTransaction(NewRequestBodyParser(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if s.ledger == nil {
		s.fail(w, r, errors.New("ledger not configured"))
		return
	}

	id, err := s.ledger.Append(ctx, tx)
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateID) {
			ErrorResponse(http.StatusConflict, err.Error()).Write(w)
			return
		}
		log.LogError(ctx, "Failed to append transaction", err, log.OpAppend, nil)
		InternalError().Write(w)
		return
	}
	tx.ID = id

	if s.notifier != nil {
		if err := s.notifier.PublishLedgerChanged(ctx, amqp.NewLedgerChangedMessage(id)); err != nil {
			// The write succeeded; the periodic report picks it up later.
			log.FromContext(ctx).WarnContext(ctx, "Failed to publish ledger change", log.FieldError, err, "transaction_id", id)
		}
	}

	log.FromContext(ctx).InfoContext(ctx, "Transaction appended",
		"transaction_id", id,
		"amount", tx.Amount.String(),
		"installment_months", tx.Months())

	NewJSONResponse().Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+id).
		Data(createdResponse{ID: id, Transaction: tx}).
		Write(w)
}
