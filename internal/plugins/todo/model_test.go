package todo

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyxmakerx/todoapi/internal/apperror"
)

func decodePatch(t *testing.T, body string) UpdateTodoRequest {
	t.Helper()
	var req UpdateTodoRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return req
}

func TestApply_AbsentNullAndValue(t *testing.T) {
	desc := "original"
	done := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	stored := &Todo{ID: 1, Title: "title", Description: &desc, CompletedAt: &done}

	t.Run("absent keeps stored values", func(t *testing.T) {
		got := stored.Apply(decodePatch(t, `{}`))
		assert.True(t, stored.Compare(got).Empty())
	})

	t.Run("explicit null clears", func(t *testing.T) {
		got := stored.Apply(decodePatch(t, `{"description":null,"completedAt":null}`))
		assert.Nil(t, got.Description)
		assert.Nil(t, got.CompletedAt)
		assert.Equal(t, []string{"description", "completedAt"}, stored.Compare(got).Fields())
	})

	t.Run("value replaces", func(t *testing.T) {
		got := stored.Apply(decodePatch(t, `{"title":"new","completedAt":"2026-01-02T09:00:00.75+09:00"}`))
		assert.Equal(t, "new", got.Title)
		require.NotNil(t, got.CompletedAt)
		assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), *got.CompletedAt)
		assert.Equal(t, "original", *got.Description)
	})

	t.Run("stored record is not mutated", func(t *testing.T) {
		stored.Apply(decodePatch(t, `{"title":"other","description":"changed"}`))
		assert.Equal(t, "title", stored.Title)
		assert.Equal(t, "original", *stored.Description)
	})
}

func TestCompare_NullToValueIsReplace(t *testing.T) {
	stored := &Todo{ID: 1, Title: "t"}
	got := stored.Apply(decodePatch(t, `{"description":"now set"}`))

	changes := stored.Compare(got)
	require.Len(t, changes, 1)
	assert.Equal(t, map[string]any{"description": "now set"}, changes.Dirty())
}

func TestUpdateTodoRequest_Validate(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		fields []string
	}{
		{"empty patch", `{}`, nil},
		{"null title", `{"title":null}`, []string{"title"}},
		{"blank title", `{"title":""}`, []string{"title"}},
		{"long title", `{"title":"` + strings.Repeat("a", 21) + `"}`, []string{"title"}},
		{"twenty runes", `{"title":"` + strings.Repeat("あ", 20) + `"}`, nil},
		{"long description", `{"description":"` + strings.Repeat("x", 501) + `"}`, []string{"description"}},
		{"null description", `{"description":null}`, nil},
		{"empty description", `{"description":""}`, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := decodePatch(t, tc.body).Validate()
			if tc.fields == nil {
				assert.NoError(t, err)
				return
			}
			appErr, ok := apperror.FromValidation(err).(*apperror.AppError)
			require.True(t, ok)
			assert.Equal(t, tc.fields, appErr.FieldNames())
		})
	}
}

func TestCreateTodoRequest_NormalizeAndValidate(t *testing.T) {
	desc := "  <script>alert(1)</script>milk &amp; eggs "
	req := CreateTodoRequest{Title: "  <b>Shop</b>  ", Description: &desc}
	req.Normalize()

	assert.Equal(t, "Shop", req.Title)
	assert.Equal(t, "milk & eggs", *req.Description)
	assert.NoError(t, req.Validate())

	blank := CreateTodoRequest{Title: "<i></i>"}
	blank.Normalize()
	assert.Error(t, blank.Validate())
}
