package constants

import (
	"strconv"
	"time"
)

// Redis key layout for seat state
// Pattern: product:{productId}:seats (hash), lock:product:{productId}:{seatId} (string)

// ================== TTL DURATIONS ==================

const (
	TTL_SEAT_LOCK = 5 * time.Minute // hold window before a lock marker expires
)

// ================== KEY PREFIXES ==================

const (
	KEY_PREFIX_PRODUCT = "product:"
	KEY_SUFFIX_SEATS   = ":seats"
	KEY_PREFIX_LOCK    = "lock:product:"

	// Glob for SCAN over every product seat hash
	KEY_PATTERN_PRODUCT_SEATS = KEY_PREFIX_PRODUCT + "*" + KEY_SUFFIX_SEATS
)

// ================== KEY BUILDERS ==================

func BuildSeatsKey(productID int64) string {
	return KEY_PREFIX_PRODUCT + strconv.FormatInt(productID, 10) + KEY_SUFFIX_SEATS
}

func BuildLockKey(productID int64, seatID string) string {
	return KEY_PREFIX_LOCK + strconv.FormatInt(productID, 10) + ":" + seatID
}

// ParseSeatsKey extracts the product id from a seat hash key
func ParseSeatsKey(key string) (int64, bool) {
	if len(key) <= len(KEY_PREFIX_PRODUCT)+len(KEY_SUFFIX_SEATS) {
		return 0, false
	}
	if key[:len(KEY_PREFIX_PRODUCT)] != KEY_PREFIX_PRODUCT || key[len(key)-len(KEY_SUFFIX_SEATS):] != KEY_SUFFIX_SEATS {
		return 0, false
	}
	id, err := strconv.ParseInt(key[len(KEY_PREFIX_PRODUCT):len(key)-len(KEY_SUFFIX_SEATS)], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
