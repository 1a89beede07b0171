package checkout

import (
	"fmt"
	"time"
)

// CustomOrderID builds the human-readable order reference shown on the
// confirmation page: ORD-YYYYMMDD-<last 6 chars of the payment id>.
func CustomOrderID(date time.Time, paymentID string) string {
	suffix := paymentID
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return fmt.Sprintf("ORD-%s-%s", date.Format("20060102"), suffix)
}
