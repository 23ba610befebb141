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

package manifest

// VersionedActionList pairs a scanned action list with the log version it
// was read from, the unit scan() yields.
type VersionedActionList struct {
	Version uint64
	List    ActionList
}

// scanResult is the outcome of scanning a version range: the versioned
// action lists in ascending order, plus the most recent Protocol action
// observed across the whole range (defaulting to the zero Protocol action
// if none was seen).
type scanResult struct {
	Entries      []VersionedActionList
	LastProtocol Action
}

func defaultProtocol() Action {
	return NewProtocolAction(0, 0)
}
