package sql

import (
	"path/filepath"
	"testing"

	"github.com/bcnelson/host-dashboard/internal/storage"
	"github.com/bcnelson/host-dashboard/internal/storage/storagetest"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New("sqlite3", filepath.Join(t.TempDir(), "dashboard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTaskStore(t *testing.T) {
	storagetest.TaskStore(t, func(t *testing.T) storage.TaskStore { return newTestStore(t) })
}

func TestAPIKeyStore(t *testing.T) {
	storagetest.APIKeyStore(t, func(t *testing.T) storage.APIKeyStore { return newTestStore(t) })
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New("oracle", "whatever")
	require.Error(t, err)
}
