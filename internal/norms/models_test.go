package norms

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-norms/internal/db/dbtest"
)

func f64(v float64) *float64 { return &v }
func pct(v int) *int         { return &v }

func TestRowFilter_Match(t *testing.T) {
	row := NormativeRow{Min: f64(10), Max: f64(20), Education: "Educación Superior", Percentile: pct(50)}

	assert.True(t, ScoreFilter(10).Match(row))
	assert.True(t, ScoreFilter(20).Match(row))
	assert.False(t, ScoreFilter(20.5).Match(row))
	assert.True(t, RowFilter{Score: f64(15), Education: "educacion superior"}.Match(row))
	assert.False(t, RowFilter{Score: f64(15), Education: "media"}.Match(row))

	media := NormativeRow{Education: "Educación Media"}
	assert.True(t, RowFilter{Education: "medium"}.Match(media))
	assert.True(t, RowFilter{Education: "Bachillerato"}.Match(media))
	assert.False(t, RowFilter{Education: "superior"}.Match(media))
	assert.True(t, RowFilter{Education: "superior"}.Match(NormativeRow{}), "untiered rows apply to every tier")

	open := NormativeRow{Max: f64(5)}
	assert.True(t, ScoreFilter(-100).Match(open))

	// rows without a sub-type count as general
	assert.True(t, RowFilter{Subtype: SubtypeGeneral}.Match(NormativeRow{}))
	assert.False(t, RowFilter{Subtype: SubtypeTransit}.Match(NormativeRow{}))
}

func TestBestRow(t *testing.T) {
	_, ok := BestRow(nil)
	assert.False(t, ok)

	rows := []NormativeRow{
		{ID: 1},
		{ID: 2, Percentile: pct(40)},
		{ID: 3, Percentile: pct(75)},
		{ID: 4, Percentile: pct(75)},
	}
	best, ok := BestRow(rows)
	require.True(t, ok)
	assert.Equal(t, int64(3), best.ID)
}

func TestSQLRepository(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewSQLRepository(conn)
	ctx := context.Background()

	ca := dbtest.Table(t, conn, string(ConcentratedAttention), "Atención concentrada Ecuador", "Ecuador")
	dbtest.Exec(t, conn, `INSERT INTO normative_tables (test_type, name, active) VALUES ('concentrated_attention','Retired',0)`)
	gi := dbtest.Table(t, conn, string(GeneralIntelligence), "Conversión de CI", "")

	tables, err := repo.ListActiveTables(ctx, ConcentratedAttention)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, ca, tables[0].ID)
	assert.True(t, tables[0].Active)

	dbtest.Exec(t, conn, `INSERT INTO normative_rows (table_id, min_score, max_score, education, percentile, classification)
		VALUES ($1,0,10,'Básica',25,'Low'), ($1,11,20,'Básica',60,'Average'), ($1,11,20,'Superior',40,'Low'), ($1,NULL,NULL,'Básica',1,'Any')`, ca)

	rows, err := repo.ListRows(ctx, ca, RowFilter{Score: f64(15), Education: "basica"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	best, ok := BestRow(rows)
	require.True(t, ok)
	assert.Equal(t, 60, *best.Percentile)
	assert.Equal(t, "Average", best.Classification)

	row, ok, err := LookupBest(ctx, repo, ca, RowFilter{Score: f64(99), Education: "superior"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, row.ID)

	name, err := repo.GetTableName(ctx, gi)
	require.NoError(t, err)
	assert.Equal(t, "Conversión de CI", name)

	_, err = repo.GetTable(ctx, 999)
	assert.True(t, errors.Is(err, ErrTableNotFound))

	found, err := repo.FindTableByName(ctx, "no such", "conversion de ci")
	require.NoError(t, err)
	assert.Equal(t, gi, found.ID)
	_, err = repo.FindTableByName(ctx, "nothing")
	assert.True(t, errors.Is(err, ErrTableNotFound))
}

func TestMemoryRepositoryMatchesSQL(t *testing.T) {
	m := NewMemoryRepository()
	tbl := m.AddTable(NormativeTable{TestType: Memore, Name: "MEMORE general", Active: true})
	m.AddTable(NormativeTable{TestType: Memore, Name: "old", Active: false})
	m.AddRows(tbl.ID, NormativeRow{Min: f64(0), Max: f64(10), Percentile: pct(30)})

	tables, err := m.ListActiveTables(context.Background(), Memore)
	require.NoError(t, err)
	assert.Len(t, tables, 1)

	rows, err := m.ListRows(context.Background(), tbl.ID, ScoreFilter(5))
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestCatalog(t *testing.T) {
	entries := Catalog()
	assert.Len(t, entries, 8)
	_, ok := ParseTestType("memore")
	assert.True(t, ok)
	_, ok = ParseTestType("Memore")
	assert.False(t, ok)
	e, _ := Lookup(DrivingMemory)
	assert.True(t, e.Shape.LicenseContext)
}
