package calclog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-norms/internal/db/dbtest"
)

func TestAppendAndRecent(t *testing.T) {
	conn := dbtest.Open(t)
	r := NewRepo(conn)
	ctx := context.Background()
	table := int64(4)

	require.NoError(t, r.Append(ctx, Entry{ID: "a", OwnerID: 1, TestType: "memore", RawInput: []byte(`{"vp":1}`),
		Result: []byte(`{"raw":1}`), TableID: &table, Origin: "10.0.0.1", CreatedAt: 100}))
	require.NoError(t, r.Append(ctx, Entry{ID: "b", OwnerID: 2, TestType: "matrix_reasoning", RawInput: []byte(`{}`),
		Result: []byte(`{}`), CreatedAt: 200}))

	all, err := r.Recent(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].ID)
	assert.Nil(t, all[0].TableID)

	mine, err := r.Recent(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, int64(4), *mine[0].TableID)
	assert.JSONEq(t, `{"vp":1}`, string(mine[0].RawInput))

	assert.Error(t, r.Append(ctx, Entry{ID: "a", OwnerID: 1, TestType: "memore", RawInput: []byte(`{}`), Result: []byte(`{}`)}))
}
