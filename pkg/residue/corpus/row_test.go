package corpus

import (
	"errors"
	"testing"

	"github.com/cognicore/residue/pkg/residue/internalerr"
)

func TestValidate(t *testing.T) {
	if err := (Row{ResourceID: "r1", Cost: 1}).Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := (Row{ResourceName: "x"}).Validate(); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := (Row{ResourceID: "r1", Cost: -1}).Validate(); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative cost, got %v", err)
	}
}

func TestNameShape(t *testing.T) {
	cases := []struct {
		name      string
		delimited bool
		glued     bool
	}{
		{"app-prod-01", true, false},
		{"app.prod", true, true},
		{"prod01sqlbackup", false, true},
		{"app_db", true, false},
		{"", false, false},
	}
	for _, tc := range cases {
		if got := HasDelimiter(tc.name); got != tc.delimited {
			t.Fatalf("HasDelimiter(%q) = %v", tc.name, got)
		}
		if got := IsGlued(tc.name); got != tc.glued {
			t.Fatalf("IsGlued(%q) = %v", tc.name, got)
		}
	}
}
