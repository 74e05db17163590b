package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
)

// maxResultRows caps what a single catalog query may return to the
// presentation surfaces.
const maxResultRows = 10000

// ErrStoreUnavailable is returned when the runner has no store to
// execute against, such as a server started without DATABASE_URL.
var ErrStoreUnavailable = errors.New("query store unavailable")

// InvalidRequestError rejects a request before it reaches the store:
// unknown query name or missing parameters.
type InvalidRequestError struct {
	Name   string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid query request %q: %s", e.Name, e.Reason)
}

// IsInvalidRequest reports whether err wraps an InvalidRequestError.
func IsInvalidRequest(err error) bool {
	var ie *InvalidRequestError
	return errors.As(err, &ie)
}

// ExecutionError wraps a store failure while running a valid catalog
// query.
type ExecutionError struct {
	Name string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("query %q failed: %v", e.Name, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Result is the tabular outcome of one catalog query run.
type Result struct {
	Name      string        `json:"name"`
	Columns   []string      `json:"columns"`
	Rows      [][]any       `json:"rows"`
	Truncated bool          `json:"truncated,omitempty"`
	Elapsed   time.Duration `json:"elapsed_ns"`
}

type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Runner executes catalog queries against the store. It never accepts
// raw SQL from callers.
type Runner struct {
	db     Querier
	tracer trace.Tracer
}

func NewRunner(db Querier, tracer trace.Tracer) *Runner {
	return &Runner{db: db, tracer: tracer}
}

// Run validates the request against the catalog, binds params in
// declared order, and executes the query. Results are capped at
// maxResultRows with Truncated set when the cap is hit.
func (r *Runner) Run(ctx context.Context, name string, params map[string]string) (*Result, error) {
	ctx, span := r.tracer.Start(ctx, "query-runner.run")
	defer span.End()

	def, ok := Lookup(name)
	if !ok {
		return nil, &InvalidRequestError{Name: name, Reason: "not in catalog"}
	}

	args, err := bindParams(def, params)
	if err != nil {
		return nil, err
	}

	if r.db == nil {
		return nil, &ExecutionError{Name: name, Err: ErrStoreUnavailable}
	}

	start := time.Now()
	rows, err := r.db.Query(ctx, def.SQL, args...)
	if err != nil {
		return nil, &ExecutionError{Name: name, Err: err}
	}
	defer rows.Close()

	columns := make([]string, 0, len(rows.FieldDescriptions()))
	for _, fd := range rows.FieldDescriptions() {
		columns = append(columns, fd.Name)
	}

	result := &Result{Name: name, Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		if len(result.Rows) >= maxResultRows {
			result.Truncated = true
			break
		}
		values, err := rows.Values()
		if err != nil {
			return nil, &ExecutionError{Name: name, Err: err}
		}
		result.Rows = append(result.Rows, normalizeRow(values))
	}
	if err := rows.Err(); err != nil {
		return nil, &ExecutionError{Name: name, Err: err}
	}

	result.Elapsed = time.Since(start)
	return result, nil
}

// bindParams checks that every declared parameter is present and returns
// the values in declaration order. Extra parameters are rejected so typos
// fail loudly instead of being ignored.
func bindParams(def Definition, params map[string]string) ([]any, error) {
	var missing []string
	args := make([]any, 0, len(def.Params))
	for _, name := range def.Params {
		v, ok := params[name]
		if !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, name)
			continue
		}
		args = append(args, v)
	}
	if len(missing) > 0 {
		return nil, &InvalidRequestError{
			Name:   def.Name,
			Reason: fmt.Sprintf("missing params: %s", strings.Join(missing, ", ")),
		}
	}

	declared := make(map[string]bool, len(def.Params))
	for _, name := range def.Params {
		declared[name] = true
	}
	var extra []string
	for name := range params {
		if !declared[name] {
			extra = append(extra, name)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return nil, &InvalidRequestError{
			Name:   def.Name,
			Reason: fmt.Sprintf("unknown params: %s", strings.Join(extra, ", ")),
		}
	}
	return args, nil
}

// normalizeRow makes row values JSON-friendly. pgx returns dates as
// time.Time; the surfaces expect plain ISO strings.
func normalizeRow(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		switch t := v.(type) {
		case time.Time:
			out[i] = t.Format("2006-01-02")
		default:
			out[i] = v
		}
	}
	return out
}
