// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

package evaluator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	ev, err := New()
	require.NoError(t, err)
	return ev
}

func TestEvaluateComparisons(t *testing.T) {
	ev := newEvaluator(t)

	tests := []struct {
		name    string
		expr    string
		context map[string]any
		want    bool
	}{
		{
			name:    "string equality",
			expr:    `employeeRegion == "Midwest"`,
			context: map[string]any{"employeeRegion": "Midwest"},
			want:    true,
		},
		{
			name:    "string inequality",
			expr:    `employeeRegion == "Midwest"`,
			context: map[string]any{"employeeRegion": "Northeast"},
			want:    false,
		},
		{
			name:    "numeric threshold",
			expr:    `amount <= 500.0`,
			context: map[string]any{"amount": 120.5},
			want:    true,
		},
		{
			name:    "conjunction",
			expr:    `region == "US" && tier >= 2`,
			context: map[string]any{"region": "US", "tier": 3},
			want:    true,
		},
		{
			name:    "negation",
			expr:    `!suspended`,
			context: map[string]any{"suspended": false},
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ev.Evaluate(tt.expr, tt.context)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateGeoDistance(t *testing.T) {
	ev := newEvaluator(t)

	// Mount Rainier is within 100km of Seattle, Cupertino is not.
	expr := `geo_distance_km(customer_lat, customer_lon, 47.620422, -122.349358) < 100.0`

	near, err := ev.Evaluate(expr, map[string]any{
		"customer_lat": 46.879967,
		"customer_lon": -121.726906,
	})
	require.NoError(t, err)
	require.True(t, near)

	far, err := ev.Evaluate(expr, map[string]any{
		"customer_lat": 37.3230,
		"customer_lon": -122.0322,
	})
	require.NoError(t, err)
	require.False(t, far)
}

func TestHaversineKnownDistance(t *testing.T) {
	// Seattle to San Francisco is roughly 1094km.
	d := haversineKm(47.6062, -122.3321, 37.7749, -122.4194)
	require.InDelta(t, 1094, d, 15)

	require.InDelta(t, 0, haversineKm(10, 20, 10, 20), 0.0001)
}

func TestEvaluateRegexFunctions(t *testing.T) {
	ev := newEvaluator(t)

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"find anywhere", `regex_find("(CREATE|DELETE)", "DELETE")`, true},
		{"find substring", `regex_find("READ", "READWRITE")`, true},
		{"find miss", `regex_find("READ", "WRITE")`, false},
		{"match full", `regex_match("[a-z]+", "abc")`, true},
		{"match rejects partial", `regex_match("[a-z]+", "abc1")`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ev.Evaluate(tt.expr, nil)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := ev.Evaluate(`regex_find("(unclosed", "x")`, nil)
	require.Error(t, err)
}

func TestEvaluateTimeFunctions(t *testing.T) {
	restore := nowUTC
	nowUTC = func() time.Time {
		return time.Date(2026, time.March, 5, 14, 30, 0, 0, time.UTC)
	}
	t.Cleanup(func() { nowUTC = restore })

	ev := newEvaluator(t)

	tests := []struct {
		name string
		expr string
	}{
		{"year", `current_year() == 2026`},
		{"month", `current_month() == 3`},
		{"ordinal", `current_ordinal() == 64`},
		{"day of month", `day_of_month() == 5`},
		{"weekday", `current_weekday() == "Thursday"`},
		{"epoch ordering", `current_epoch_secs() > date_epoch_secs(2026, 3, 4)`},
		{"datetime epoch", `datetime_epoch_secs(2026, 3, 5, 14, 30, 0) == current_epoch_secs()`},
		{"date epoch midnight", `date_epoch_secs(1970, 1, 2) == 86400`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ev.Evaluate(tt.expr, nil)
			require.NoError(t, err)
			require.True(t, got)
		})
	}
}

func TestEvaluateRejectsNonBoolean(t *testing.T) {
	ev := newEvaluator(t)

	for _, expr := range []string{`1 + 2`, `"hello"`, `current_year()`} {
		_, err := ev.Evaluate(expr, nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "only boolean results")
	}
}

func TestEvaluateUnknownIdentifier(t *testing.T) {
	ev := newEvaluator(t)

	_, err := ev.Evaluate(`missingVar == "x"`, map[string]any{"other": "y"})
	require.Error(t, err)
}

func TestEvaluateTypeMismatch(t *testing.T) {
	ev := newEvaluator(t)

	_, err := ev.Evaluate(`region == 5`, map[string]any{"region": "US"})
	require.Error(t, err)
}
