// Package executor translates plans and runs the resulting SQL against
// the store.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/matthewbaird/relplan/internal/event"
	"github.com/matthewbaird/relplan/internal/metrics"
	"github.com/matthewbaird/relplan/internal/plan"
	"github.com/matthewbaird/relplan/internal/store"
	"github.com/matthewbaird/relplan/internal/translate"
)

// Querier runs SQL text. *store.Store implements it.
type Querier interface {
	Query(ctx context.Context, query string) (*store.Rows, error)
}

// Result holds the output of one plan execution.
type Result struct {
	SQL     string      `json:"sql"`
	Columns []string    `json:"columns"`
	Rows    [][]any     `json:"rows"`
	Meta    *ResultMeta `json:"meta"`
}

// ResultMeta provides metadata about the result.
type ResultMeta struct {
	Root    string `json:"root"`
	Total   int    `json:"total"`
	Elapsed string `json:"elapsed"`
}

// ExecError reports a compiled query the engine refused or failed to run.
type ExecError struct {
	SQL string
	Err error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// Executor runs plans against a store.
type Executor struct {
	translator *translate.Translator
	db         Querier
	metrics    *metrics.Metrics
	catalog    plan.Catalog
	events     event.Publisher
}

// New creates an executor. m may be nil.
func New(tr *translate.Translator, db Querier, m *metrics.Metrics) *Executor {
	return &Executor{
		translator: tr,
		db:         db,
		metrics:    m,
	}
}

// WithCatalog makes Parse reject leaf references that are not catalog
// tables.
func (e *Executor) WithCatalog(c plan.Catalog) *Executor {
	e.catalog = c
	return e
}

// WithEvents publishes an event for every parse failure, translation and
// execution.
func (e *Executor) WithEvents(p event.Publisher) *Executor {
	e.events = p
	return e
}

// Parse decodes and validates a plan document.
func (e *Executor) Parse(data []byte, format plan.Format) (*plan.Plan, error) {
	var opts []plan.Option
	if e.catalog != nil {
		opts = append(opts, plan.WithCatalog(e.catalog))
	}
	p, err := plan.Parse(data, format, opts...)
	if err != nil {
		e.metrics.ObserveTranslation(metrics.OutcomePlanError)
		e.publish(context.Background(), rejected("", err))
		return nil, err
	}
	return p, nil
}

// Translate compiles p to SQL without running it.
func (e *Executor) Translate(p *plan.Plan) (string, error) {
	sql, err := e.compile(context.Background(), p)
	if err != nil {
		return "", err
	}
	e.publish(context.Background(), event.NewPlanTranslated(p.Root, sql))
	return sql, nil
}

func (e *Executor) compile(ctx context.Context, p *plan.Plan) (string, error) {
	sql, err := e.translator.Translate(p)
	if err != nil {
		e.metrics.ObserveTranslation(metrics.OutcomePlanError)
		root := ""
		if p != nil {
			root = p.Root
		}
		e.publish(ctx, rejected(root, err))
		return "", err
	}
	e.metrics.ObserveTranslation(metrics.OutcomeOK)
	return sql, nil
}

// Execute compiles p and runs it. Plan failures are returned as *plan.Error
// before anything reaches the engine; engine failures as *ExecError.
func (e *Executor) Execute(ctx context.Context, p *plan.Plan) (*Result, error) {
	sql, err := e.compile(ctx, p)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := e.db.Query(ctx, sql)
	elapsed := time.Since(start)
	if err != nil {
		e.metrics.ObserveExecution(metrics.OutcomeExecError, elapsed)
		e.publish(ctx, event.NewExecutionFailed(p.Root, sql, err.Error(), elapsed))
		log.Debug().Err(err).Str("sql", sql).Msg("query failed")
		return nil, &ExecError{SQL: sql, Err: err}
	}
	e.metrics.ObserveExecution(metrics.OutcomeOK, elapsed)
	e.publish(ctx, event.NewPlanExecuted(p.Root, sql, len(rows.Values), elapsed))

	return &Result{
		SQL:     sql,
		Columns: rows.Columns,
		Rows:    rows.Values,
		Meta: &ResultMeta{
			Root:    p.Root,
			Total:   len(rows.Values),
			Elapsed: elapsed.String(),
		},
	}, nil
}

// IsExecError reports whether err came from the engine.
func IsExecError(err error) bool {
	var ee *ExecError
	return errors.As(err, &ee)
}

func (e *Executor) publish(ctx context.Context, evt event.QueryEvent) {
	if e.events != nil {
		e.events.Publish(ctx, evt)
	}
}

func rejected(root string, err error) event.QueryEvent {
	var perr *plan.Error
	if errors.As(err, &perr) {
		return event.NewPlanRejected(root, perr.Kind.Code(), perr.Node, perr.Error())
	}
	return event.NewPlanRejected(root, "INVALID_BODY", "", err.Error())
}
