package main

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/mind-engage/mindengage-norms/internal/db"
)

func dbFlags(t *testing.T) []string {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "norms.db") + "?_pragma=busy_timeout(5000)"
	return []string{"-db-driver", "sqlite", "-db-dsn", dsn, "-log-level", "off"}
}

func ctl(t *testing.T, flags []string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := run(context.Background(), append(append([]string{}, flags...), args...), &out, &errOut)
	return out.String(), err
}

func seed(t *testing.T, flags []string, query string, args ...any) {
	t.Helper()
	conn, err := db.Open(context.Background(), db.DriverSQLite, flags[3])
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Exec(query, args...)
	require.NoError(t, err)
}

func TestStockRestockAndList(t *testing.T) {
	flags := dbFlags(t)

	out, err := ctl(t, flags, "stock", "restock", "-item", "MEMORE answer sheet", "-qty", "12", "-note", "delivery")
	require.NoError(t, err)
	assert.Equal(t, int64(12), gjson.Get(out, "quantity").Int())
	id := gjson.Get(out, "id").String()

	out, err = ctl(t, flags, "stock", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "MEMORE answer sheet")
	assert.Contains(t, out, "12")

	out, err = ctl(t, flags, "stock", "movements", "-id", id)
	require.NoError(t, err)
	assert.Equal(t, "inbound", gjson.Get(out, "0.direction").String())

	_, err = ctl(t, flags, "stock", "restock", "-item", "MEMORE answer sheet", "-qty", "0")
	assert.Error(t, err)
}

func TestScoreUnlinked(t *testing.T) {
	flags := dbFlags(t)
	seed(t, flags, `INSERT INTO normative_tables (test_type, name, region, active) VALUES ('memore','MEMORE Población general','',1)`)

	out, err := ctl(t, flags, "score", "-test", "memore", "-input", `{"vp":18,"vn":6,"fn":6,"fp":6}`)
	require.NoError(t, err)
	assert.Equal(t, int64(50), gjson.Get(out, "score_result.percentile").Int())
	assert.Equal(t, "unlinked", gjson.Get(out, "mode").String())

	var n int
	conn, err := sql.Open("sqlite", flags[3])
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM calculation_log WHERE origin='normsctl'`).Scan(&n))
	assert.Equal(t, 1, n)

	out, err = ctl(t, flags, "log", "-limit", "5")
	require.NoError(t, err)
	assert.Equal(t, "memore", gjson.Get(out, "0.test_type").String())

	_, err = ctl(t, flags, "score", "-test", "astrology", "-input", `{}`)
	assert.Error(t, err)
}

func TestSuggest(t *testing.T) {
	flags := dbFlags(t)
	seed(t, flags, `INSERT INTO normative_tables (test_type, name, region, active) VALUES
		('memore','MEMORE Población general','',1),
		('memore','MEMORE Ecuador renovación','Ecuador',1)`)

	out, err := ctl(t, flags, "suggest", "-test", "memore", "-age", "40", "-transit", "renewal")
	require.NoError(t, err)
	assert.Equal(t, "MEMORE Ecuador renovación", gjson.Get(out, "table_name").String())
	assert.Len(t, gjson.Get(out, "candidates").Array(), 2)
}
