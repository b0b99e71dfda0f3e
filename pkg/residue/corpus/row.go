// Package corpus defines the billing rows the audit consumes.
package corpus

import (
	"fmt"
	"strings"

	"github.com/cognicore/residue/pkg/residue/internalerr"
)

// Row is one billed resource.
type Row struct {
	ResourceID     string  `json:"resource_id"`
	ResourceName   string  `json:"resource_name"`
	ResourceGroup  string  `json:"resource_group"`
	SubAccount     string  `json:"sub_account"`
	BillingAccount string  `json:"billing_account"`
	Cost           float64 `json:"cost"`
}

// Validate checks the fields every row needs.
func (r Row) Validate() error {
	if strings.TrimSpace(r.ResourceID) == "" {
		return fmt.Errorf("row %q: missing resource_id: %w", r.ResourceName, internalerr.ErrInvalidInput)
	}
	if r.Cost < 0 {
		return fmt.Errorf("row %s: negative cost %v: %w", r.ResourceID, r.Cost, internalerr.ErrInvalidInput)
	}
	return nil
}

// HasDelimiter reports whether the name contains a segment delimiter.
func HasDelimiter(name string) bool {
	return strings.ContainsAny(name, Delimiters)
}

// IsGlued reports whether a name carries neither a dash nor an underscore.
// Empty names are not glued.
func IsGlued(name string) bool {
	return name != "" && !strings.ContainsAny(name, "-_")
}

// Delimiters are the runes that separate name segments.
const Delimiters = "-_.:/"

// IsDelimiter reports whether r separates name segments.
func IsDelimiter(r rune) bool {
	return strings.ContainsRune(Delimiters, r)
}
