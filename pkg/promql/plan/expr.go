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

package plan

import "gitee.com/kwbasedb/kwts/pkg/schema"

// Expr is the sealed scalar-expression sum type plan nodes reference:
// column references, literals, and the handful of operators the planner
// actually constructs (arithmetic/comparison binary ops, negation, casts,
// aliasing, function calls, null checks).
type Expr interface {
	isExpr()
}

// Column references a single named column of the input row.
type Column struct {
	Name string
}

func (*Column) isExpr() {}

// LiteralFloat is a PromQL number literal.
type LiteralFloat struct {
	Value float64
}

func (*LiteralFloat) isExpr() {}

// LiteralString is a PromQL string literal.
type LiteralString struct {
	Value string
}

func (*LiteralString) isExpr() {}

// LiteralTimestamp is a millisecond-resolution timestamp literal. The
// planner builds it for the scan's time-range bounds; literal function
// parameters, predict_linear's `t` included, are built as LiteralFloat.
type LiteralTimestamp struct {
	ValueMs int64
}

func (*LiteralTimestamp) isExpr() {}

// BinaryOp enumerates the arithmetic/comparison/regex operators the
// planner builds.
type BinaryOp int

const (
	OpEq BinaryOp = iota
	OpNotEq
	OpGt
	OpLt
	OpGtEq
	OpLtEq
	OpRegexMatch
	OpRegexNotMatch
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpAnd
	OpOr
)

func (op BinaryOp) IsComparison() bool {
	switch op {
	case OpEq, OpNotEq, OpGt, OpLt, OpGtEq, OpLtEq:
		return true
	default:
		return false
	}
}

// Binary is a two-operand expression.
type Binary struct {
	Left, Right Expr
	Op          BinaryOp
}

func (*Binary) isExpr() {}

// Negate implements PromQL unary minus.
type Negate struct {
	Expr Expr
}

func (*Negate) isExpr() {}

// Cast converts Expr to To, used to turn a comparison's boolean result
// into a 0.0/1.0 float64 under the `bool` modifier.
type Cast struct {
	Expr Expr
	To   schema.ScalarType
}

func (*Cast) isExpr() {}

// Alias renames Expr's result column, stripping any table qualifier, the
// way every planner-constructed field expression is re-aliased before
// being projected.
type Alias struct {
	Expr Expr
	Name string
}

func (*Alias) isExpr() {}

// Call invokes a named scalar function or UDF with Args, in argument
// order.
type Call struct {
	Func string
	Args []Expr
}

func (*Call) isExpr() {}

// IsNotNull tests Expr for non-null, used to build the "drop rows where
// every new field is null" filter after a function projection.
type IsNotNull struct {
	Expr Expr
}

func (*IsNotNull) isExpr() {}

// SortExpr pairs an expression with its sort direction.
type SortExpr struct {
	Expr       Expr
	Ascending  bool
	NullsFirst bool
}
