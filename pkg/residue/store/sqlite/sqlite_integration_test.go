package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cognicore/residue/pkg/residue/mask"
	"github.com/cognicore/residue/pkg/residue/store"
	"github.com/cognicore/residue/pkg/residue/store/storetest"
)

func TestSQLiteContract(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	st, err := OpenSQLite(ctx, dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer st.Close()

	storetest.Run(t, st)
}

// TestSQLiteReopen checks that data survives closing the database
func TestSQLiteReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "reopen.db")

	st, err := OpenSQLite(ctx, dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	run := store.Run{ID: "01HZX0000000000000000000B0", StartedAt: time.Now()}
	if err := st.BeginRun(ctx, run); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if err := st.PutRecords(ctx, run.ID, []mask.Record{{ResourceID: "r1", ResourceName: "a-b"}}); err != nil {
		t.Fatalf("PutRecords: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st, err = OpenSQLite(ctx, dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()

	recs, err := st.Records(ctx, run.ID)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(recs) != 1 || recs[0].ResourceID != "r1" {
		t.Fatalf("unexpected records after reopen: %+v", recs)
	}
}
