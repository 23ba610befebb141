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

// Package log provides the ambient, context-scoped logging used across the
// manifest and promql packages. It mirrors the call-site shape of kwbase's
// pkg/util/log (Infof/Warningf/Errorf/Fatalf taking a context first) without
// depending on kwbase's tracing/cluster-settings machinery, which is outside
// this module's scope.
package log

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/cockroachdb/logtags"
)

var (
	mu      sync.Mutex
	std     = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
	verbose = false
)

// SetVerbose toggles whether VEventf messages are emitted. Off by default,
// the same polarity as kwbase's vmodule-gated V(n) logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

func tagsFromCtx(ctx context.Context) string {
	if tags := logtags.FromContext(ctx); tags != nil {
		if s := tags.String(); s != "" {
			return "[" + s + "] "
		}
	}
	return ""
}

func output(ctx context.Context, level, format string, args []interface{}) {
	msg := fmt.Sprintf(format, args...)
	mu.Lock()
	defer mu.Unlock()
	std.Printf("%s%s %s", tagsFromCtx(ctx), level, msg)
}

// Infof logs an informational message scoped to ctx.
func Infof(ctx context.Context, format string, args ...interface{}) {
	output(ctx, "I", format, args)
}

// Warningf logs a recoverable anomaly scoped to ctx.
func Warningf(ctx context.Context, format string, args ...interface{}) {
	output(ctx, "W", format, args)
}

// Errorf logs an operation failure scoped to ctx.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	output(ctx, "E", format, args)
}

// Fatalf logs and terminates the process, matching kwbase's log.Fatalf
// contract for unrecoverable invariant violations.
func Fatalf(ctx context.Context, format string, args ...interface{}) {
	output(ctx, "F", format, args)
	os.Exit(1)
}

// VEventf logs a verbose trace-level message when verbose logging is
// enabled; cheap no-op otherwise.
func VEventf(ctx context.Context, level int32, format string, args ...interface{}) {
	mu.Lock()
	v := verbose
	mu.Unlock()
	if !v {
		return
	}
	output(ctx, "V", format, args)
}

// AddTag returns a derived context carrying an additional log tag, the way
// kwbase's AmbientContext.AnnotateCtx composes logtags.
func AddTag(ctx context.Context, key string, value interface{}) context.Context {
	return logtags.AddTag(ctx, key, value)
}
