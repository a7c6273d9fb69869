package ingestion

import (
	"github.com/stretchr/testify/mock"
)

// MockDBManager is a testify mock of the DBManager interface shared by the
// ingestion tests.
type MockDBManager struct {
	mock.Mock
}

func (m *MockDBManager) EnsureLedgerTable() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDBManager) IsProcessed(directory, filename string) (bool, error) {
	args := m.Called(directory, filename)
	return args.Bool(0), args.Error(1)
}

func (m *MockDBManager) MarkProcessed(directory, filename, checksum string) error {
	args := m.Called(directory, filename, checksum)
	return args.Error(0)
}

func (m *MockDBManager) BulkUpsert(table string, columns, conflictColumns []string, rows [][]any) error {
	args := m.Called(table, columns, conflictColumns, rows)
	return args.Error(0)
}

func (m *MockDBManager) SelectCodes(table string) (map[string]bool, error) {
	args := m.Called(table)
	codes, _ := args.Get(0).(map[string]bool)
	return codes, args.Error(1)
}

func (m *MockDBManager) CountRows(table string) (int64, error) {
	args := m.Called(table)
	return args.Get(0).(int64), args.Error(1)
}
