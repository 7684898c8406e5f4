package traffic

import (
	"context"
	"fmt"
	"time"

	"fieldroute/internal/model"
)

// Cache stores provider results by Key. A miss is (zero, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) (Result, bool, error)
	Set(ctx context.Context, key string, r Result, ttl time.Duration) error
}

const departureBucket = 15 * time.Minute

// Key rounds coordinates to four decimals (about 11 m) and the departure
// time down to a 15 minute bucket so nearby lookups share an entry.
func Key(from, to model.Coordinate, departAt time.Time) string {
	return fmt.Sprintf("%.4f,%.4f>%.4f,%.4f@%d",
		from.Lat, from.Lng, to.Lat, to.Lng, departAt.UTC().Truncate(departureBucket).Unix())
}
