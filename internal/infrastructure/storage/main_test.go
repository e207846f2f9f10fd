package storage

import (
	"os"
	"testing"

	"github.com/gridflow/gridflow/testutil"
)

func TestMain(m *testing.M) {
	os.Exit(testutil.RunWithEmbeddedDB(m))
}
