package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/w3f/edunews/internal/ledger"
)

// createTestStore creates a new file-backed store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestBlock creates a block with deterministic hashes.
func createTestBlock(number uint64, exts ...string) ledger.Block {
	parent := "0x00"
	if number > 1 {
		parent = blockHashFor(number - 1)
	}
	return ledger.Block{
		Number:     number,
		Hash:       blockHashFor(number),
		ParentHash: parent,
		Timestamp:  1700000000 + int64(number),
		Extrinsics: exts,
	}
}

func blockHashFor(n uint64) string {
	return "0xb" + string(rune('0'+n%10))
}

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("table_info(%s) failed: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			t.Fatalf("scan table_info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
