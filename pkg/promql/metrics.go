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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	planCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kwts_promql_plans_total",
		Help: "the number of PromQL expressions successfully translated into a logical plan",
	})
	planErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kwts_promql_plan_errors_total",
		Help: "the number of PromQL expressions that failed translation",
	})
	planDurations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kwts_promql_plan_duration_seconds",
		Help:    "the length of time it took to translate a PromQL expression into a logical plan",
		Buckets: prometheus.DefBuckets,
	})
)

// observePlan records the outcome and wall-clock cost of a single Plan call.
func observePlan(start time.Time, err error) {
	planDurations.Observe(time.Since(start).Seconds())
	if err != nil {
		planErrors.Inc()
		return
	}
	planCount.Inc()
}
