package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/tablekit/internal/backup"
	"github.com/leapstack-labs/tablekit/internal/engine"
	"github.com/leapstack-labs/tablekit/pkg/core"
)

const (
	defaultHistoryLimit = 20
	maxBodyBytes        = 1 << 20
)

// Handlers provides HTTP handlers for the table editor.
// Every engine call runs under the shared locker.
type Handlers struct {
	engine  *engine.Engine
	runner  *backup.Runner
	store   core.Store
	exclude []string
	mu      sync.Locker
	logger  *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(cfg Config, logger *slog.Logger) *Handlers {
	mu := cfg.Locker
	if mu == nil {
		mu = &sync.Mutex{}
	}
	return &Handlers{
		engine:  cfg.Engine,
		runner:  cfg.Runner,
		store:   cfg.Store,
		exclude: cfg.Exclude,
		mu:      mu,
		logger:  logger,
	}
}

type editRequest struct {
	Column string          `json:"column"`
	Value  json.RawMessage `json:"value"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type queryRequest struct {
	SQL   string `json:"sql"`
	Limit int    `json:"limit"`
}

type deleteRequest struct {
	Keys []string `json:"keys"`
}

// ListTables returns the visible table names.
func (h *Handlers) ListTables(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	names, err := h.engine.Introspector().TableNames(r.Context(), h.exclude...)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": names})
}

// DescribeTable returns the live descriptor of one table.
func (h *Handlers) DescribeTable(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	desc, err := h.describe(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, desc)
}

// FetchPage returns one window of rows.
func (h *Handlers) FetchPage(w http.ResponseWriter, r *http.Request) {
	req, err := pageRequest(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	desc, err := h.describe(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	page, err := h.engine.FetchPage(r.Context(), desc, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Search returns one window of rows matching every token of q.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	req, err := pageRequest(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var columns []string
	if raw := r.URL.Query().Get("columns"); raw != "" {
		for c := range strings.SplitSeq(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				columns = append(columns, c)
			}
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	desc, err := h.describe(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	page, err := h.engine.Search(r.Context(), desc, columns, r.URL.Query().Get("q"), req)
	if errors.Is(err, engine.ErrNothingToSearch) {
		writeJSON(w, http.StatusOK, searchResponse{
			Page:    &core.Page{Table: desc.Name, Columns: desc.ColumnNames(), Rows: []core.Row{}, Limit: req.Limit, Offset: req.Offset},
			Outcome: outcomeNothingToSearch,
		})
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Page: page})
}

const outcomeNothingToSearch = "nothing_to_search"

// searchResponse is a page plus an outcome set when the query held no tokens.
type searchResponse struct {
	*core.Page
	Outcome string `json:"outcome,omitempty"`
}

// InsertRow adds one record from a JSON object of column to text value.
func (h *Handlers) InsertRow(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if err := decode(r, &values); err != nil {
		h.writeError(w, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	desc, err := h.describe(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	n, err := h.engine.Insert(r.Context(), desc, values)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"inserted": n})
}

// EditCell writes one cell. Unchanged edits answer 200 with outcome "unchanged".
func (h *Handlers) EditCell(w http.ResponseWriter, r *http.Request) {
	var body editRequest
	if err := decode(r, &body); err != nil {
		h.writeError(w, err)
		return
	}
	value, err := cellValue(body.Value)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	desc, key, err := h.describeKey(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	result, err := h.engine.EditCell(r.Context(), desc, key, body.Column, value)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SetStatus moves a row to a new status.
func (h *Handlers) SetStatus(w http.ResponseWriter, r *http.Request) {
	var body statusRequest
	if err := decode(r, &body); err != nil {
		h.writeError(w, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	desc, key, err := h.describeKey(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.engine.SetStatus(r.Context(), desc, key, body.Status); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "status": body.Status})
}

// DeleteRow removes the row named in the path.
func (h *Handlers) DeleteRow(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	desc, key, err := h.describeKey(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.engine.DeleteOne(r.Context(), desc, key); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": 1})
}

// DeleteRows removes every row whose key is listed in the body.
func (h *Handlers) DeleteRows(w http.ResponseWriter, r *http.Request) {
	var body deleteRequest
	if err := decode(r, &body); err != nil {
		h.writeError(w, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	desc, err := h.describe(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	keys := make([]any, 0, len(body.Keys))
	for _, raw := range body.Keys {
		key, err := engine.ParseKey(desc, raw)
		if err != nil {
			h.writeError(w, err)
			return
		}
		keys = append(keys, key)
	}
	n, err := h.engine.DeleteByKeys(r.Context(), desc, keys)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": n})
}

// Resync moves the table's auto-increment counter past its largest key.
func (h *Handlers) Resync(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	desc, err := h.describe(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.engine.Resync(r.Context(), desc)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// RunQuery executes one ad-hoc SQL statement. Reads answer with columns and
// rows; other statements answer with rows_affected.
func (h *Handlers) RunQuery(w http.ResponseWriter, r *http.Request) {
	var body queryRequest
	if err := decode(r, &body); err != nil {
		h.writeError(w, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	res, err := h.engine.Query(r.Context(), body.SQL, body.Limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// RunBackup produces one backup artifact. The runner takes the locker itself.
func (h *Handlers) RunBackup(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody{Error: "backups are not configured", Code: "not_configured"})
		return
	}
	run, err := h.runner.Run(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

// ListBackups returns recent backup runs, newest first.
func (h *Handlers) ListBackups(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusOK, map[string]any{"runs": []*core.BackupRun{}})
		return
	}
	limit, err := intParam(r, "limit", defaultHistoryLimit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	runs, err := h.store.ListBackupRuns(limit)
	if err != nil {
		h.writeError(w, fmt.Errorf("failed to list backup runs: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// ListJournal returns recent journal entries, optionally for one table.
func (h *Handlers) ListJournal(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusOK, map[string]any{"entries": []*core.JournalEntry{}})
		return
	}
	limit, err := intParam(r, "limit", defaultHistoryLimit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	entries, err := h.store.ListJournal(r.URL.Query().Get("table"), limit)
	if err != nil {
		h.writeError(w, fmt.Errorf("failed to list journal: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// describe resolves the {table} path parameter. Excluded tables are unknown.
func (h *Handlers) describe(r *http.Request) (*core.TableDescriptor, error) {
	table := chi.URLParam(r, "table")
	if slices.ContainsFunc(h.exclude, func(x string) bool { return strings.EqualFold(x, table) }) {
		return nil, fmt.Errorf("%w: %s", engine.ErrUnknownTable, table)
	}
	return h.engine.Describe(r.Context(), table)
}

func (h *Handlers) describeKey(r *http.Request) (*core.TableDescriptor, any, error) {
	desc, err := h.describe(r)
	if err != nil {
		return nil, nil, err
	}
	key, err := engine.ParseKey(desc, chi.URLParam(r, "key"))
	if err != nil {
		return nil, nil, err
	}
	return desc, key, nil
}

func pageRequest(r *http.Request) (core.PageRequest, error) {
	var req core.PageRequest
	var err error
	if req.Limit, err = intParam(r, "limit", 0); err != nil {
		return req, err
	}
	if req.Offset, err = intParam(r, "offset", 0); err != nil {
		return req, err
	}
	req.OrderBy = r.URL.Query().Get("order")
	if raw := r.URL.Query().Get("asc"); raw != "" {
		if req.Ascending, err = strconv.ParseBool(raw); err != nil {
			return req, fmt.Errorf("%w: asc must be a boolean", errBadRequest)
		}
	}
	return req, nil
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", errBadRequest, name)
	}
	return n, nil
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

// cellValue turns a JSON value into the text form the engine coerces.
// null clears the cell; numbers and booleans keep their literal text.
func cellValue(raw json.RawMessage) (any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: invalid value: %v", errBadRequest, err)
	}
	switch v.(type) {
	case float64, bool:
		return string(raw), nil
	default:
		return nil, fmt.Errorf("%w: value must be a string, number, boolean or null", errBadRequest)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "status", status, "error", err)
	} else {
		h.logger.Debug("request rejected", "status", status, "error", err)
	}
	writeJSON(w, status, body)
}
