package reconcile

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// badger pulls in opencensus, whose view worker starts at init
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}
