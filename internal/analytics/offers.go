// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package analytics

import "strings"

// ResolveOfferType classifies an offer from its key and product type.
// Pack sizes are checked before single so "pack_10_single" is a pack.
func ResolveOfferType(offerKey, productType string) string {
	haystack := strings.ToLower(offerKey + " " + productType)
	containsAny := func(needles ...string) bool {
		for _, n := range needles {
			if strings.Contains(haystack, n) {
				return true
			}
		}
		return false
	}

	switch {
	case containsAny("pack_10", "pack-10", "10"):
		return "pack_10"
	case containsAny("pack_5", "pack-5", "5"):
		return "pack_5"
	case containsAny("single", "one"):
		return "single"
	default:
		return "unknown"
	}
}
