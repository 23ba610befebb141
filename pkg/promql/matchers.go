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

import (
	"regexp"
	"sort"

	"github.com/prometheus/prometheus/model/labels"

	"gitee.com/kwbasedb/kwts/pkg/promql/plan"
	"gitee.com/kwbasedb/kwts/pkg/util/kwtserror"
)

// fieldColumnMatcherLabel is the pseudo-label that selects a subset of
// field columns rather than filtering rows.
const fieldColumnMatcherLabel = "__field__"

// preprocessLabelMatchers splits off the `__name__` equality matcher
// (binding the table name) and any `__field__` matchers (collected for
// later field-column resolution), returning the remaining label matchers
// to translate into scan/filter predicates.
func (p *Planner) preprocessLabelMatchers(matchers []*labels.Matcher) []*labels.Matcher {
	var rest []*labels.Matcher
	for _, m := range matchers {
		switch {
		case m.Name == labels.MetricName && m.Type == labels.MatchEqual:
			p.ctx.tableName = m.Value
		case m.Name == fieldColumnMatcherLabel:
			p.ctx.fieldColumnMatchers = append(p.ctx.fieldColumnMatchers, m)
		default:
			rest = append(rest, m)
		}
	}
	return rest
}

// matchersToExprs translates label matchers into column-comparison
// predicates.
func matchersToExprs(matchers []*labels.Matcher) []plan.Expr {
	exprs := make([]plan.Expr, 0, len(matchers))
	for _, m := range matchers {
		col := &plan.Column{Name: m.Name}
		lit := &plan.LiteralString{Value: m.Value}
		var op plan.BinaryOp
		switch m.Type {
		case labels.MatchEqual:
			op = plan.OpEq
		case labels.MatchNotEqual:
			op = plan.OpNotEq
		case labels.MatchRegexp:
			op = plan.OpRegexMatch
		case labels.MatchNotRegexp:
			op = plan.OpRegexNotMatch
		}
		exprs = append(exprs, &plan.Binary{Left: col, Right: lit, Op: op})
	}
	return exprs
}

// resolveFieldColumns applies any `__field__` matchers collected by
// preprocessLabelMatchers to the context's field-column set: the
// resulting set is (positive matches, or all columns if no positive
// matcher was given) minus negative matches. Equal/not-equal against a
// non-existent field is an error; regex matchers are applied
// column-by-column and never error on zero matches.
func (p *Planner) resolveFieldColumns() error {
	if len(p.ctx.fieldColumnMatchers) == 0 {
		return nil
	}
	colSet := make(map[string]struct{}, len(p.ctx.fieldColumns))
	for _, c := range p.ctx.fieldColumns {
		colSet[c] = struct{}{}
	}
	result := map[string]struct{}{}
	reverse := map[string]struct{}{}
	for _, m := range p.ctx.fieldColumnMatchers {
		switch m.Type {
		case labels.MatchEqual:
			if _, ok := colSet[m.Value]; !ok {
				return kwtserror.Wrapf(kwtserror.ErrColumnNotFound, "field %q on table %q", m.Value, p.ctx.tableName)
			}
			result[m.Value] = struct{}{}
		case labels.MatchNotEqual:
			if _, ok := colSet[m.Value]; !ok {
				return kwtserror.Wrapf(kwtserror.ErrValueNotFound, "field %q on table %q", m.Value, p.ctx.tableName)
			}
			reverse[m.Value] = struct{}{}
		case labels.MatchRegexp:
			re, err := regexp.Compile(m.Value)
			if err != nil {
				return kwtserror.Wrapf(kwtserror.ErrUnsupportedExpr, "invalid __field__ regex %q: %v", m.Value, err)
			}
			for c := range colSet {
				if re.MatchString(c) {
					result[c] = struct{}{}
				}
			}
		case labels.MatchNotRegexp:
			re, err := regexp.Compile(m.Value)
			if err != nil {
				return kwtserror.Wrapf(kwtserror.ErrUnsupportedExpr, "invalid __field__ regex %q: %v", m.Value, err)
			}
			for c := range colSet {
				if re.MatchString(c) {
					reverse[c] = struct{}{}
				}
			}
		}
	}
	if len(result) == 0 {
		for c := range colSet {
			result[c] = struct{}{}
		}
	}
	for c := range reverse {
		delete(result, c)
	}
	out := make([]string, 0, len(result))
	for c := range result {
		out = append(out, c)
	}
	sort.Strings(out)
	p.ctx.fieldColumns = out
	return nil
}
