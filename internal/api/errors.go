package api

import (
	"errors"
	"net/http"

	"github.com/leapstack-labs/tablekit/internal/backup"
	"github.com/leapstack-labs/tablekit/internal/engine"
	"github.com/leapstack-labs/tablekit/pkg/adapter"
)

// errBadRequest marks malformed request input caught before the engine runs.
var errBadRequest = errors.New("bad request")

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	// RevertTo is the key a client should show again after a rejected rename.
	RevertTo any `json:"revert_to,omitempty"`
}

// errorResponse maps the engine's error taxonomy onto HTTP.
func errorResponse(err error) (int, errorBody) {
	body := errorBody{Error: err.Error()}

	var dup *engine.DuplicateKeyError
	switch {
	case errors.As(err, &dup):
		body.Code = "duplicate_key"
		body.RevertTo = dup.Old
		return http.StatusConflict, body
	case errors.Is(err, engine.ErrNoPrimaryKey):
		body.Code = "no_primary_key"
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, engine.ErrStaleRow):
		body.Code = "stale_row"
		return http.StatusConflict, body
	case errors.Is(err, backup.ErrBackupRunning):
		body.Code = "backup_running"
		return http.StatusConflict, body
	case errors.Is(err, engine.ErrNotFound):
		body.Code = "not_found"
		return http.StatusNotFound, body
	case errors.Is(err, engine.ErrUnknownTable):
		body.Code = "unknown_table"
		return http.StatusNotFound, body
	case errors.Is(err, errBadRequest), engine.IsValidation(err):
		body.Code = "invalid"
		return http.StatusBadRequest, body
	case errors.Is(err, engine.ErrStore):
		body.Code = "store"
		return http.StatusBadGateway, body
	case errors.Is(err, adapter.ErrNotConnected):
		body.Code = "not_connected"
		return http.StatusServiceUnavailable, body
	default:
		body.Code = "internal"
		return http.StatusInternalServerError, body
	}
}
