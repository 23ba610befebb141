// Copyright 2022-present, Shanghai Yunxi Technology Co, Ltd. All rights reserved.
//
// This software (KWDB) is licensed under Mulan PSL v2.
// You can use this software according to the terms and conditions of the Mulan PSL v2.
// You may obtain a copy of Mulan PSL v2 at:
//          http://license.coscl.org.cn/MulanPSL2
// THIS SOFTWARE IS PROVIDED ON AN "AS IS" BASIS, WITHOUT WARRANTIES OF ANY KIND,
// EITHER EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO NON-INFRINGEMENT,
// MERCHANTABILITY OR FIT FOR A PARTICULAR PURPOSE.
// See the Mulan PSL v2 for more details.

package promql

// funcKind classifies how planCall splices a field column into a function
// call: a plain instant scalar
// function, a user-defined aggregator taking the bundled timestamp range
// as an extra argument, or an "extrapolating" UDF that additionally needs
// the time-index column and a range selector.
type funcKind int

const (
	funcBuiltinScalar funcKind = iota
	funcUDF
	funcExtrapolatingUDF
)

// builtinScalarFuncs are pure instant functions with a direct
// one-field-column-in, one-value-out shape (abs, ceil, exp, ...).
var builtinScalarFuncs = map[string]struct{}{
	"abs": {}, "ceil": {}, "floor": {}, "exp": {}, "ln": {}, "log2": {}, "log10": {},
	"sqrt": {}, "sin": {}, "cos": {}, "tan": {}, "asin": {}, "acos": {}, "atan": {},
	"sinh": {}, "cosh": {}, "tanh": {}, "round": {}, "sgn": {}, "clamp": {},
	"clamp_min": {}, "clamp_max": {}, "deg": {}, "rad": {}, "pi": {},
}

// udfFuncs receive the bundled timestamp-range pseudo-column as their
// first argument alongside the field column.
var udfFuncs = map[string]struct{}{
	"idelta": {}, "irate": {}, "resets": {}, "changes": {}, "deriv": {},
	"avg_over_time": {}, "min_over_time": {}, "max_over_time": {}, "sum_over_time": {},
	"count_over_time": {}, "last_over_time": {}, "absent_over_time": {},
	"present_over_time": {}, "stddev_over_time": {}, "stdvar_over_time": {},
	"quantile_over_time": {}, "predict_linear": {}, "holt_winters": {},
}

// extrapolatingFuncs additionally receive the time-index column and
// require a range selector.
var extrapolatingFuncs = map[string]struct{}{
	"increase": {}, "rate": {}, "delta": {},
}

func classifyFunc(name string) (funcKind, bool) {
	if _, ok := extrapolatingFuncs[name]; ok {
		return funcExtrapolatingUDF, true
	}
	if _, ok := udfFuncs[name]; ok {
		return funcUDF, true
	}
	if _, ok := builtinScalarFuncs[name]; ok {
		return funcBuiltinScalar, true
	}
	return 0, false
}

// funcsWithLiteralParams lists functions planCall pulls extra literal
// parameters for, after the field-column argument: the count and meaning
// of each.
var funcsWithLiteralParams = map[string]int{
	"quantile_over_time": 1, // quantile (float64)
	"predict_linear":     1, // t (passed as a float64 literal, not a LiteralTimestamp)
	"holt_winters":       2, // smoothing factor, trend factor (both float64)
}
