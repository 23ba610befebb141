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

// Package kwtserror defines the error taxonomy shared by the promql and
// manifest packages, as sentinel errors that get wrapped with contextual
// detail via github.com/cockroachdb/errors, the same package
// kwbase/pkg/sql/opt/memo uses for planner error construction.
package kwtserror

import "github.com/cockroachdb/errors"

// Planner / catalog errors.
var (
	ErrCatalog             = errors.New("catalog")
	ErrUnknownTable        = errors.New("unknown table")
	ErrTableNameNotFound   = errors.New("table name not found")
	ErrTimeIndexNotFound   = errors.New("time index column not found")
	ErrColumnNotFound      = errors.New("column not found")
	ErrValueNotFound       = errors.New("value not found")
	ErrExpectRangeSelector = errors.New("expected a range selector")
	ErrZeroRangeSelector   = errors.New("range selector duration must be > 0")
	ErrMultipleVector      = errors.New("multiple vector arguments are not supported")
	ErrUnexpectedPlanExpr  = errors.New("unexpected plan expression")
	ErrUnexpectedToken     = errors.New("unexpected token")
	ErrUnsupportedExpr     = errors.New("unsupported expression")
	ErrPlanning            = errors.New("planning failure")
)

// Table-layer errors.
var (
	ErrRegionNotFound          = errors.New("region not found")
	ErrRegionSchemaMismatch    = errors.New("region schema mismatch")
	ErrInvalidTable            = errors.New("invalid table")
	ErrProjectedColumnNotFound = errors.New("projected column not found")
)

// Manifest errors.
var (
	ErrManifestCheckpoint  = errors.New("unrecognized action encountered during manifest checkpoint")
	ErrUpdateTableManifest = errors.New("failed to update table manifest")
	ErrScanTableManifest   = errors.New("failed to scan table manifest")
	ErrConvertRaw          = errors.New("failed to convert raw manifest payload")
	ErrParseTableOption    = errors.New("failed to parse table option")
)

// Wrapf attaches a formatted message to an existing sentinel error while
// preserving errors.Is matchability.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// Mark tags err as being "kind" for later errors.Is matching without losing
// the original message, used where a lower-level failure (e.g. a JSON
// decode error) needs to surface as one of the sentinels above.
func Mark(err error, kind error) error {
	return errors.Mark(err, kind)
}
