package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pura-pata-api/internal/domain/apperr"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("dog x: %w", apperr.ErrNotFound), http.StatusNotFound, "not_found"},
		{apperr.ErrForbidden, http.StatusForbidden, "forbidden"},
		{apperr.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{apperr.Invalid("photos", "required"), http.StatusBadRequest, "validation_failed"},
		{fmt.Errorf("%w: 6MB", apperr.ErrTooLarge), http.StatusRequestEntityTooLarge, "file_too_large"},
		{apperr.ErrConflict, http.StatusConflict, "status_conflict"},
		{apperr.ErrDuplicate, http.StatusConflict, "duplicate"},
		{apperr.ErrUpstream, http.StatusBadGateway, "upstream_failure"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		status, code := Classify(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
	}
}

func TestWriteError_IncludesFieldsAndHidesInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, apperr.Invalid("photos", "at least one photo is required"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Fields, 1)
	assert.Equal(t, "photos", body.Fields[0].Field)

	rec = httptest.NewRecorder()
	WriteError(rec, errors.New("pq: connection refused"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal error", body.Detail)
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Luna"}`))
	require.NoError(t, DecodeJSON(r, &v))
	assert.Equal(t, "Luna", v.Name)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	assert.ErrorIs(t, DecodeJSON(r, &v), apperr.ErrValidation)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"unknown":1}`))
	assert.ErrorIs(t, DecodeJSON(r, &v), apperr.ErrValidation)
}
