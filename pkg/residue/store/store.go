package store

import (
	"context"
	"time"

	"github.com/cognicore/residue/pkg/residue/glued"
	"github.com/cognicore/residue/pkg/residue/mask"
	"github.com/cognicore/residue/pkg/residue/protect"
	"github.com/cognicore/residue/pkg/residue/similarity"
)

// Protect-set table names.
const (
	TableFrequency = "frequency"
	TableCost      = "cost"
	TableCombined  = "combined"
)

// Store persists audit runs and their outputs
type Store interface {
	Close() error

	// Runs
	BeginRun(ctx context.Context, r Run) error
	GetRun(ctx context.Context, id string) (Run, error)
	LatestRun(ctx context.Context) (Run, bool, error)

	// Phase outputs, replaced wholesale per run
	PutRecords(ctx context.Context, runID string, recs []mask.Record) error
	Records(ctx context.Context, runID string) ([]mask.Record, error)
	PutProtectSet(ctx context.Context, runID, table string, entries []protect.Entry) error
	ProtectSet(ctx context.Context, runID, table string) ([]protect.Entry, error)
	PutGluedResults(ctx context.Context, runID string, results []glued.Result) error
	GluedResults(ctx context.Context, runID string) ([]glued.Result, error)
	PutGroups(ctx context.Context, runID string, groups []similarity.Group) error
	Groups(ctx context.Context, runID string) ([]similarity.Group, error)
}

// Run describes one audit execution
type Run struct {
	ID        string
	StartedAt time.Time
	Rows      int
	// Settings is the JSON-encoded configuration the run used.
	Settings string
}

// ValidTable reports whether name is a known protect-set table.
func ValidTable(name string) bool {
	switch name {
	case TableFrequency, TableCost, TableCombined:
		return true
	}
	return false
}
