// Copyright 2024 The Wasmer-JS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package wasm

import "errors"

var (
	errVaruintTruncated = errors.New("truncated varuint32")
	errVaruintOverflow  = errors.New("varuint32 overflows 32 bits")
)

// readVaruint decodes an unsigned LEB128 value of at most 32 bits from
// the front of b. It returns the value and the number of bytes consumed,
// which the section walk needs to keep byte positions accurate.
func readVaruint(b []byte) (uint32, int, error) {
	var v uint32
	var shift uint
	for i := 0; i < len(b); i++ {
		c := b[i]
		// The fifth byte holds bits 28..34; only its low 4 bits fit in 32
		// bits and its continuation bit must be clear.
		if shift == 28 && c > 0x0f {
			return 0, 0, errVaruintOverflow
		}
		v |= uint32(c&0x7f) << shift
		if c&0x80 == 0 {
			return v, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, errVaruintTruncated
}

// appendVaruint appends the unsigned LEB128 encoding of v to b.
func appendVaruint(b []byte, v uint32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		b = append(b, c)
		if c&0x80 == 0 {
			return b
		}
	}
}
