package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/leapstack-labs/tablekit/pkg/adapter"
	"github.com/leapstack-labs/tablekit/pkg/core"
)

// ResyncResult reports what Resync observed and changed.
type ResyncResult struct {
	Table   string `json:"table"`
	Max     int64  `json:"max"`
	Current int64  `json:"current"`
	Target  int64  `json:"target"`
	Changed bool   `json:"changed"`
	// Skipped explains a no-op: empty table, non-integer key, or no counter.
	Skipped string `json:"skipped,omitempty"`
}

// Skip reasons.
const (
	SkipEmptyTable = "empty table"
	SkipNonInteger = "non-integer key"
	SkipNoCounter  = "no auto-increment counter"
)

// Resync moves the auto-increment counter to MAX(pk)+1 when it differs.
// An empty table is left alone. Running it twice changes nothing the second time.
func (e *Engine) Resync(ctx context.Context, desc *core.TableDescriptor) (ResyncResult, error) {
	if !desc.HasPrimaryKey() {
		return ResyncResult{}, fmt.Errorf("%w: %s", ErrNoPrimaryKey, desc.Name)
	}
	q, err := e.session.querier()
	if err != nil {
		return ResyncResult{}, err
	}
	return e.resync(ctx, q, desc)
}

func (e *Engine) resync(ctx context.Context, q adapter.Querier, desc *core.TableDescriptor) (ResyncResult, error) {
	res := ResyncResult{Table: desc.Name}

	maxKey, err := e.maxKey(ctx, q, desc)
	if err != nil {
		return res, err
	}
	if maxKey == nil {
		res.Skipped = SkipEmptyTable
		return res, nil
	}
	n, ok := toInt64(maxKey)
	if !ok {
		e.logger.Debug("skipping resync", "table", desc.Name, "reason", SkipNonInteger)
		res.Skipped = SkipNonInteger
		return res, nil
	}
	res.Max = n
	res.Target = n + 1

	adp := e.session.Adapter()
	current, err := adp.NextAutoValue(ctx, q, desc.Name, desc.PrimaryKey)
	if errors.Is(err, adapter.ErrNoSequence) {
		res.Skipped = SkipNoCounter
		return res, nil
	}
	if err != nil {
		return res, storeErr("read counter", err)
	}
	res.Current = current

	if current == res.Target {
		return res, nil
	}
	if err := adp.SetNextAutoValue(ctx, q, desc.Name, desc.PrimaryKey, res.Target); err != nil {
		return res, storeErr("set counter", err)
	}
	res.Changed = true
	e.logger.Debug("counter resynced", "table", desc.Name, "from", current, "to", res.Target)
	return res, nil
}

func (e *Engine) maxKey(ctx context.Context, q adapter.Querier, desc *core.TableDescriptor) (any, error) {
	d := e.session.Dialect()
	var v any
	query := fmt.Sprintf("SELECT MAX(%s) FROM %s", d.QuoteIdent(desc.PrimaryKey), d.QuoteIdent(desc.Name))
	if err := q.QueryRowContext(ctx, query).Scan(&v); err != nil {
		return nil, storeErr("read max key", err)
	}
	return v, nil
}
