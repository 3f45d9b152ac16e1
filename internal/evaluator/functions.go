// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

package evaluator

import (
	"math"
	"regexp"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// builtinFunctions returns the CEL declarations for the builtin function
// table available to every constraint expression.
func builtinFunctions() []cel.EnvOption {
	return []cel.EnvOption{
		cel.Function("geo_distance_km",
			cel.Overload("geo_distance_km_double",
				[]*cel.Type{cel.DoubleType, cel.DoubleType, cel.DoubleType, cel.DoubleType},
				cel.DoubleType,
				cel.FunctionBinding(func(values ...ref.Val) ref.Val {
					lat1, ok1 := values[0].Value().(float64)
					lon1, ok2 := values[1].Value().(float64)
					lat2, ok3 := values[2].Value().(float64)
					lon2, ok4 := values[3].Value().(float64)
					if !ok1 || !ok2 || !ok3 || !ok4 {
						return types.NewErr("geo_distance_km requires four numeric arguments")
					}
					return types.Double(haversineKm(lat1, lon1, lat2, lon2))
				}),
			),
		),
		cel.Function("regex_match",
			cel.Overload("regex_match_string",
				[]*cel.Type{cel.StringType, cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
					re, err := regexp.Compile("^(?:" + lhs.Value().(string) + ")$")
					if err != nil {
						return types.NewErr("regex_match: invalid pattern %q: %v", lhs.Value(), err)
					}
					return types.Bool(re.MatchString(rhs.Value().(string)))
				}),
			),
		),
		cel.Function("regex_find",
			cel.Overload("regex_find_string",
				[]*cel.Type{cel.StringType, cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
					re, err := regexp.Compile(lhs.Value().(string))
					if err != nil {
						return types.NewErr("regex_find: invalid pattern %q: %v", lhs.Value(), err)
					}
					return types.Bool(re.MatchString(rhs.Value().(string)))
				}),
			),
		),
		cel.Function("current_year",
			cel.Overload("current_year", []*cel.Type{}, cel.IntType,
				cel.FunctionBinding(func(values ...ref.Val) ref.Val {
					return types.Int(nowUTC().Year())
				}),
			),
		),
		cel.Function("current_month",
			cel.Overload("current_month", []*cel.Type{}, cel.IntType,
				cel.FunctionBinding(func(values ...ref.Val) ref.Val {
					return types.Int(int(nowUTC().Month()))
				}),
			),
		),
		cel.Function("current_ordinal",
			cel.Overload("current_ordinal", []*cel.Type{}, cel.IntType,
				cel.FunctionBinding(func(values ...ref.Val) ref.Val {
					return types.Int(nowUTC().YearDay())
				}),
			),
		),
		cel.Function("day_of_month",
			cel.Overload("day_of_month", []*cel.Type{}, cel.IntType,
				cel.FunctionBinding(func(values ...ref.Val) ref.Val {
					return types.Int(nowUTC().Day())
				}),
			),
		),
		cel.Function("current_weekday",
			cel.Overload("current_weekday", []*cel.Type{}, cel.StringType,
				cel.FunctionBinding(func(values ...ref.Val) ref.Val {
					return types.String(nowUTC().Weekday().String())
				}),
			),
		),
		cel.Function("current_epoch_secs",
			cel.Overload("current_epoch_secs", []*cel.Type{}, cel.IntType,
				cel.FunctionBinding(func(values ...ref.Val) ref.Val {
					return types.Int(nowUTC().Unix())
				}),
			),
		),
		cel.Function("date_epoch_secs",
			cel.Overload("date_epoch_secs_int",
				[]*cel.Type{cel.IntType, cel.IntType, cel.IntType},
				cel.IntType,
				cel.FunctionBinding(func(values ...ref.Val) ref.Val {
					y, m, d := values[0].Value().(int64), values[1].Value().(int64), values[2].Value().(int64)
					t := time.Date(int(y), time.Month(m), int(d), 0, 0, 0, 0, time.UTC)
					return types.Int(t.Unix())
				}),
			),
		),
		cel.Function("datetime_epoch_secs",
			cel.Overload("datetime_epoch_secs_int",
				[]*cel.Type{cel.IntType, cel.IntType, cel.IntType, cel.IntType, cel.IntType, cel.IntType},
				cel.IntType,
				cel.FunctionBinding(func(values ...ref.Val) ref.Val {
					args := make([]int, 6)
					for i, v := range values {
						args[i] = int(v.Value().(int64))
					}
					t := time.Date(args[0], time.Month(args[1]), args[2], args[3], args[4], args[5], 0, time.UTC)
					return types.Int(t.Unix())
				}),
			),
		),
	}
}

// nowUTC is replaceable in tests.
var nowUTC = func() time.Time { return time.Now().UTC() }

// haversineKm computes the great-circle distance between two coordinates.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0

	rLat1 := lat1 * math.Pi / 180.0
	rLat2 := lat2 * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(rLat1)*math.Cos(rLat2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}
