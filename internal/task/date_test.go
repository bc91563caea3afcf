package task

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_UnmarshalJSON(t *testing.T) {
	var body struct {
		DueDate *Date `json:"due_date"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"due_date":"2025-01-15"}`), &body))
	require.NotNil(t, body.DueDate)
	assert.True(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC).Equal(body.DueDate.Time))

	require.NoError(t, json.Unmarshal([]byte(`{"due_date":"2025-01-15T10:00:00+02:00"}`), &body))
	assert.True(t, time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC).Equal(body.DueDate.Time))

	body.DueDate = nil
	require.NoError(t, json.Unmarshal([]byte(`{"due_date":null}`), &body))
	assert.Nil(t, body.DueDate)
	assert.Nil(t, body.DueDate.timePtr())

	assert.Error(t, json.Unmarshal([]byte(`{"due_date":"tomorrow"}`), &body))
	assert.Error(t, json.Unmarshal([]byte(`{"due_date":20250115}`), &body))
}
