// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package analytics

import "testing"

func TestResolveOfferType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		offerKey, productType, want string
	}{
		{"offer-pack_10", "", "pack_10"},
		{"bundle", "pack-10", "pack_10"},
		{"offer-pack-5", "", "pack_5"},
		{"offer-single", "report", "single"},
		{"unknown", "", "unknown"},
		{"premium", "one_time", "single"},
	}

	for _, tt := range tests {
		if got := ResolveOfferType(tt.offerKey, tt.productType); got != tt.want {
			t.Errorf("ResolveOfferType(%q, %q): expected %s, got %s", tt.offerKey, tt.productType, tt.want, got)
		}
	}
}
