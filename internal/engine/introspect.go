package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/tablekit/pkg/core"
)

// Introspector discovers tables, columns and primary keys on demand.
// Nothing is cached: every call reflects the live schema.
type Introspector struct {
	s *Session
}

// NewIntrospector creates an introspector over a session.
func NewIntrospector(s *Session) *Introspector {
	return &Introspector{s: s}
}

// TableNames lists tables sorted by name, omitting any whose name matches
// an entry of exclude case-insensitively.
func (i *Introspector) TableNames(ctx context.Context, exclude ...string) ([]string, error) {
	q, err := i.s.querier()
	if err != nil {
		return nil, err
	}
	names, err := i.s.adp.Tables(ctx, q)
	if err != nil {
		return nil, storeErr("list tables", err)
	}

	skip := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		skip[strings.ToLower(e)] = struct{}{}
	}

	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := skip[strings.ToLower(n)]; ok {
			continue
		}
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

// PrimaryKeyOf returns the first primary key column of table.
// Returns ErrNoPrimaryKey when the backend reports none.
func (i *Introspector) PrimaryKeyOf(ctx context.Context, table string) (string, error) {
	q, err := i.s.querier()
	if err != nil {
		return "", err
	}
	pk, err := i.s.adp.PrimaryKey(ctx, q, table)
	if err != nil {
		return "", storeErr("primary key lookup", err)
	}
	if pk == "" {
		return "", fmt.Errorf("%w: %s", ErrNoPrimaryKey, table)
	}
	return pk, nil
}

// ColumnsOf returns the live column list of table in ordinal order.
func (i *Introspector) ColumnsOf(ctx context.Context, table string) ([]core.Column, error) {
	q, err := i.s.querier()
	if err != nil {
		return nil, err
	}
	cols, err := i.s.adp.Columns(ctx, q, table)
	if err != nil {
		return nil, storeErr("column lookup", err)
	}
	return cols, nil
}

// Describe validates table against the live table list and builds its descriptor.
// A table without a primary key is described with an empty PrimaryKey.
func (i *Introspector) Describe(ctx context.Context, table string) (*core.TableDescriptor, error) {
	names, err := i.TableNames(ctx)
	if err != nil {
		return nil, err
	}
	name, ok := matchName(names, table)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	cols, err := i.ColumnsOf(ctx, name)
	if err != nil {
		return nil, err
	}

	desc := &core.TableDescriptor{Name: name, Columns: cols}
	pk, err := i.PrimaryKeyOf(ctx, name)
	switch {
	case err == nil:
		desc.PrimaryKey = pk
	case errors.Is(err, ErrNoPrimaryKey):
		i.s.logger.Debug("table has no primary key", "table", name)
	default:
		return nil, err
	}
	return desc, nil
}

// matchName prefers an exact match and falls back to a unique case-insensitive one.
func matchName(names []string, want string) (string, bool) {
	var folded []string
	for _, n := range names {
		if n == want {
			return n, true
		}
		if strings.EqualFold(n, want) {
			folded = append(folded, n)
		}
	}
	if len(folded) == 1 {
		return folded[0], true
	}
	return "", false
}
