package db

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullIfEmpty(t *testing.T) {
	assert.Nil(t, nullIfEmpty(""))
	require.NotNil(t, nullIfEmpty("x"))
	assert.Equal(t, "x", *nullIfEmpty("x"))
}

func TestCursorRoundTrip(t *testing.T) {
	createdAt := time.Date(2024, 5, 6, 7, 8, 9, 123456000, time.UTC)
	id := uuid.New()

	cursor := EncodeCursor(createdAt, id)
	gotAt, gotID, err := DecodeCursor(cursor)
	require.NoError(t, err)
	assert.True(t, createdAt.Equal(gotAt))
	assert.Equal(t, id, gotID)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	for _, c := range []string{"!!!", "bm8tc2VwYXJhdG9y", encodeCursorRaw("abc|" + uuid.NewString()), encodeCursorRaw("1|not-a-uuid")} {
		_, _, err := DecodeCursor(c)
		var curErr *InvalidCursorError
		assert.ErrorAs(t, err, &curErr, c)
	}
}

func TestClassifyWriteError(t *testing.T) {
	keyErr := &pgconn.PgError{Code: "23505", ConstraintName: caseKeyConstraint, Message: "duplicate key"}
	otherUnique := &pgconn.PgError{Code: "23505", ConstraintName: "cases_email_key", Message: "duplicate email"}
	check := &pgconn.PgError{Code: "23514", ConstraintName: "cases_priority_check", Message: "check failed"}
	syntax := &pgconn.PgError{Code: "42601", Message: "syntax error"}

	t.Run("key conflict on insert", func(t *testing.T) {
		err := classifyWriteError(fmt.Errorf("wrapped: %w", keyErr), "K1", true)
		var kc *KeyConflictError
		require.ErrorAs(t, err, &kc)
		assert.Equal(t, "K1", kc.Key)
	})

	t.Run("key conflict not expected", func(t *testing.T) {
		err := classifyWriteError(keyErr, "K1", false)
		var cv *ConstraintViolationError
		require.ErrorAs(t, err, &cv)
		assert.Equal(t, caseKeyConstraint, cv.Constraint)
	})

	t.Run("other unique constraint", func(t *testing.T) {
		err := classifyWriteError(otherUnique, "K1", true)
		var cv *ConstraintViolationError
		require.ErrorAs(t, err, &cv)
		assert.Contains(t, err.Error(), "cases_email_key")
	})

	t.Run("check constraint", func(t *testing.T) {
		var cv *ConstraintViolationError
		assert.ErrorAs(t, classifyWriteError(check, "", false), &cv)
	})

	t.Run("non integrity errors pass through", func(t *testing.T) {
		assert.Same(t, syntax, classifyWriteError(syntax, "", true).(*pgconn.PgError))
		plain := errors.New("connection reset")
		assert.Equal(t, plain, classifyWriteError(plain, "", true))
	})
}

func TestDate_JSON(t *testing.T) {
	d := &Date{Time: time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC)}
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"1999-12-31"`, string(data))

	var parsed Date
	require.NoError(t, json.Unmarshal([]byte(`"2000-01-02"`), &parsed))
	assert.Equal(t, 2000, parsed.Year())

	assert.Nil(t, NewDate(nil))
}

func TestSortedKeys(t *testing.T) {
	keys := sortedKeys(map[string]any{"status": 1, "email": 2, "dob": 3})
	assert.Equal(t, []string{"dob", "email", "status"}, keys)
}

func encodeCursorRaw(raw string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}
