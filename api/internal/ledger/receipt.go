package ledger

import "time"

// Receipt describes one commit attempt for auditing.
type Receipt struct {
	Token   string
	OwnerID int64
	ChatID  int64
	Items   int
	OK      int
	Failed  int
	Err     string
	At      time.Time
}

// Count tallies per-item results for n submitted items. Items the ledger
// did not answer for count as failed.
func Count(results []Result, n int) (ok, failed int) {
	for i, r := range results {
		if i >= n {
			break
		}
		if r.OK {
			ok++
		}
	}
	return ok, n - ok
}
