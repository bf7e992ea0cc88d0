package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/typerace/internal/model"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"room not found", model.ErrRoomNotFound, http.StatusNotFound},
		{"wrapped room not found", fmt.Errorf("loading: %w", model.ErrRoomNotFound), http.StatusNotFound},
		{"player not found", model.ErrPlayerNotFound, http.StatusNotFound},
		{"room full", model.ErrRoomFull, http.StatusConflict},
		{"already started", model.ErrGameAlreadyStarted, http.StatusConflict},
		{"duplicate name", model.ErrDuplicateName, http.StatusConflict},
		{"invalid state", model.ErrInvalidState, http.StatusConflict},
		{"invalid request", model.ErrInvalidRequest, http.StatusBadRequest},
		{"space exhausted", model.ErrRoomSpaceExhausted, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
		{"explicit", NewInvalidRequestError("bad"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, StatusOf(tt.err))
		})
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, model.ErrRoomNotFound)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, CodeRoomNotFound, resp.Error.Code)
}
