package driver

import (
	"fmt"
	"sync/atomic"
)

var sessionSeq uint64

// nextSessionID returns a process-unique identifier for one StartCapture
// invocation, carried on every Event it produces so a subscriber can
// correlate progress and completion notifications back to that call.
func nextSessionID(driverType string) string {
	n := atomic.AddUint64(&sessionSeq, 1)
	return fmt.Sprintf("%s-%d", driverType, n)
}
