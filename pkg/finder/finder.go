// Package finder locates the object whose name ends in the highest number,
// e.g. the newest of "snapshot_1", "snapshot_2", ... in a bucket.
package finder

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"regexp"

	"s3snap/pkg/logger"
	"s3snap/pkg/object"
)

// ErrNoneFound is returned by Latest when the listing is empty or no key
// contains a digit.
var ErrNoneFound = errors.New("no objects found or no numeric endings detected")

// lastDigits matches the final run of digits: only non-digits may follow it.
var lastDigits = regexp.MustCompile(`([0-9]+)[^0-9]*$`)

// Match is the winning object together with the number extracted from its key.
type Match struct {
	Object object.Object
	Number *big.Int
}

// TrailingNumber returns the value of the last maximal digit run in name.
// "v2-report-045" yields 45.
func TrailingNumber(name string) (*big.Int, bool) {
	m := lastDigits.FindStringSubmatch(name)
	if m == nil {
		return nil, false
	}
	n, ok := new(big.Int).SetString(m[1], 10)
	if !ok {
		return nil, false
	}
	return n, true
}

// Highest picks the object with the largest trailing number. Keys without
// digits are skipped; on a tie the earliest object wins.
func Highest(objs []object.Object) (Match, bool) {
	var best Match
	for _, obj := range objs {
		n, ok := TrailingNumber(obj.Key)
		if !ok {
			continue
		}
		if best.Number == nil || n.Cmp(best.Number) > 0 {
			best = Match{Object: obj, Number: n}
		}
	}
	return best, best.Number != nil
}

// Latest lists the first page of bucket and returns its highest-numbered
// object. A failed listing is returned as is; an empty or digit-free listing
// yields ErrNoneFound.
func Latest(ctx context.Context, lister object.Lister, bucket string, opts object.ListOptions) (Match, error) {
	if bucket == "" {
		return Match{}, fmt.Errorf("finder: %w: bucket is required", object.ErrInvalidArgument)
	}

	page, err := lister.List(ctx, bucket, opts)
	if err != nil {
		return Match{}, fmt.Errorf("finder: list %s: %w", bucket, err)
	}
	if page.Truncated {
		logger.Log.Warn().
			Str("bucket", bucket).
			Int("listed", len(page.Objects)).
			Msg("listing truncated, only the first page was scanned")
	}

	m, ok := Highest(page.Objects)
	if !ok {
		return Match{}, ErrNoneFound
	}
	logger.Log.Debug().
		Str("bucket", bucket).
		Str("key", m.Object.Key).
		Str("number", m.Number.String()).
		Msg("highest numbered object")
	return m, nil
}
