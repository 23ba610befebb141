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

import (
	"encoding/binary"
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// encodeFramed wraps a JSON payload in a 4-byte big-endian length prefix,
// the wire format every .log/.ckpt object uses.
func encodeFramed(v interface{}) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encoding manifest payload")
	}
	buf := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(buf[:4], uint32(len(payload)))
	copy(buf[4:], payload)
	return buf, nil
}

// decodeFramed reverses encodeFramed into v, validating the length prefix
// matches the remaining bytes exactly.
func decodeFramed(data []byte, v interface{}) error {
	if len(data) < 4 {
		return errors.Newf("manifest payload too short: %d bytes", len(data))
	}
	n := binary.BigEndian.Uint32(data[:4])
	payload := data[4:]
	if uint32(len(payload)) != n {
		return errors.Newf("manifest payload length mismatch: header says %d, got %d", n, len(payload))
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return errors.Wrap(err, "decoding manifest payload")
	}
	return nil
}
