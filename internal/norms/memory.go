package norms

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// MemoryRepository is an in-process Repository for fixtures and tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	tables []NormativeTable
	rows   []NormativeRow
	nextID int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1}
}

// AddTable stores t, assigning an id when t.ID is zero.
func (m *MemoryRepository) AddTable(t NormativeTable) NormativeTable {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == 0 {
		t.ID = m.nextID
		m.nextID++
	}
	m.tables = append(m.tables, t)
	return t
}

// AddRows appends rows to tableID, assigning ids in order.
func (m *MemoryRepository) AddRows(tableID int64, rows ...NormativeRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		r.TableID = tableID
		r.ID = m.nextID
		m.nextID++
		m.rows = append(m.rows, r)
	}
}

func (m *MemoryRepository) ListActiveTables(_ context.Context, testType TestType) ([]NormativeTable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []NormativeTable
	for _, t := range m.tables {
		if t.TestType == testType && t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MemoryRepository) ListRows(_ context.Context, tableID int64, f RowFilter) ([]NormativeRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []NormativeRow
	for _, r := range m.rows {
		if r.TableID == tableID && f.Match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryRepository) GetTable(_ context.Context, tableID int64) (NormativeTable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tables {
		if t.ID == tableID {
			return t, nil
		}
	}
	return NormativeTable{}, errors.Wrapf(ErrTableNotFound, "id %d", tableID)
}

func (m *MemoryRepository) GetTableName(ctx context.Context, tableID int64) (string, error) {
	t, err := m.GetTable(ctx, tableID)
	return t.Name, err
}

func (m *MemoryRepository) FindTableByName(_ context.Context, patterns ...string) (NormativeTable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range patterns {
		p = Normalize(p)
		for _, t := range m.tables {
			if strings.Contains(Normalize(t.Name), p) {
				return t, nil
			}
		}
	}
	return NormativeTable{}, errors.Wrapf(ErrTableNotFound, "name patterns %v", patterns)
}
