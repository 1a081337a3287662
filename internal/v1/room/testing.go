package room

import "time"

// SetHostGracePeriodForTest overrides the package-wide host-grace
// window and returns a restore func. Exported (rather than living in a
// _test.go file) so integration tests in other packages — the
// reconciler and Janitor suites — can exercise grace-expiry without
// waiting out the real 60s window. Safe only when tests run serially.
func SetHostGracePeriodForTest(d time.Duration) (restore func()) {
	orig := hostGracePeriod
	setHostGracePeriodForTest(d)
	return func() { setHostGracePeriodForTest(orig) }
}
