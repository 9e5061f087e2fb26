package common

import (
	"context"
	"log"
	"time"
)

type BookingExpirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// ExpireStaleBookings is the scheduled task dropping checkouts that were
// never paid nor canceled. Each run gets at most timeout to finish.
func ExpireStaleBookings(bookings BookingExpirer, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	n, err := bookings.ExpireStale(ctx)
	if err != nil {
		log.Printf("[ExpiredBookings] Error expiring pending bookings: %s\n", err.Error())
		return
	}
	if n > 0 {
		log.Printf("[ExpiredBookings] Expired %d pending bookings\n", n)
	}
}
