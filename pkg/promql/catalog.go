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

// Package promql translates a parsed PromQL expression, using
// github.com/prometheus/prometheus/promql/parser, into a logical plan
// tree. It consults an external TableSource for schema resolution and
// never itself touches a storage engine.
package promql

import (
	"context"

	"gitee.com/kwbasedb/kwts/pkg/schema"
)

// TableHandle is what a TableSource resolves a bare table name to: the
// table's schema (used to bind time-index/tag/field columns) and an
// opaque physical handle the eventual executor needs but the planner
// never inspects.
type TableHandle struct {
	Name     string
	Schema   schema.Schema
	Physical interface{}
}

// TableSource is the catalog contract: given a bare table reference, it
// returns the table's schema and the physical table handle. Anything
// beyond this narrow read interface is deliberately out of scope.
type TableSource interface {
	ResolveTable(ctx context.Context, name string) (*TableHandle, error)
}

// StaticCatalog is a TableSource backed by an in-memory map, the shape
// every planner test in this package uses in place of a real distributed
// catalog.
type StaticCatalog map[string]*TableHandle

// ResolveTable implements TableSource.
func (c StaticCatalog) ResolveTable(ctx context.Context, name string) (*TableHandle, error) {
	t, ok := c[name]
	if !ok {
		return nil, ErrUnknownTableNamed(name)
	}
	return t, nil
}
