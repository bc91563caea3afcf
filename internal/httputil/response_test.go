package httputil

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorWithCode(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondErrorWithCode(rec, "invalid token", CodeInvalidToken, http.StatusUnauthorized)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, ErrorResponse{Error: "invalid token", Code: CodeInvalidToken}, body)
}

func TestRespondValidationError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondValidationError(rec, "validation failed", FieldDetail{Field: "title", Message: "title is required"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t,
		`{"error":"validation failed","code":"VALIDATION_FAILED","details":[{"field":"title","message":"title is required"}]}`,
		rec.Body.String(),
	)
}

func TestDecodeJSON_RejectsOversizedBody(t *testing.T) {
	big := `{"title":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/tasks", strings.NewReader(big))

	var dst map[string]string
	err := DecodeJSON(httptest.NewRecorder(), req, &dst)
	assert.Error(t, err)
}

func TestRespondJSON_LogsEncodeFailure(t *testing.T) {
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })

	rec := httptest.NewRecorder()
	RespondJSON(rec, map[string]any{"bad": make(chan int)}, http.StatusOK)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, buf.String(), `"msg":"failed to encode JSON response"`)
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
}
