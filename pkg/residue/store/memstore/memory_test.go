package memstore

import (
	"testing"

	"github.com/cognicore/residue/pkg/residue/store/storetest"
)

func TestMemstoreContract(t *testing.T) {
	st := New()
	defer st.Close()
	storetest.Run(t, st)
}
