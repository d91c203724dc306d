package db

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingFilesSortedUpOnly(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_indexes.up.sql":     {Data: []byte("SELECT 2")},
		"0001_audit_log.up.sql":   {Data: []byte("SELECT 1")},
		"0001_audit_log.down.sql": {Data: []byte("DROP TABLE audit_log")},
		"README.md":               {Data: []byte("notes")},
	}

	names, err := pendingFiles(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_audit_log.up.sql", "0002_indexes.up.sql"}, names)
}
