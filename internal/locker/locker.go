// Package locker provides keyed mutual exclusion around invoice and coupon settlement.
package locker

import (
	"context"
	"errors"
	"sort"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrNotAcquired = errors.New("lock not acquired")

// Locker acquires every key or none. The returned unlock releases all of them.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}

func InvoiceKey(id primitive.ObjectID) string {
	return "invoice:" + id.Hex()
}

func CouponKey(id primitive.ObjectID) string {
	return "coupon:" + id.Hex()
}

// normalize drops empty and duplicate keys and sorts the rest so every caller acquires in
// the same order.
func normalize(keys []string) []string {
	out := lo.Uniq(lo.Compact(keys))
	sort.Strings(out)
	return out
}
