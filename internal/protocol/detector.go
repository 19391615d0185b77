// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
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

package protocol

import "encoding/binary"

// MySQLPort is the well-known MySQL port spec.md §4.3 gates MySQL
// detection on.
const MySQLPort uint16 = 3306

var httpRequestPrefixes = [][4]byte{
	{'G', 'E', 'T', ' '},
	{'P', 'O', 'S', 'T'},
	{'P', 'U', 'T', ' '},
	{'D', 'E', 'L', 'E'},
	{'T', 'R', 'A', 'C'},
	{'C', 'O', 'N', 'N'},
	{'O', 'P', 'T', 'I'},
	{'H', 'E', 'A', 'D'},
}

func hasHTTPRequestPrefix(b []byte) bool {
	if len(b) < 4 {
		return false
	}
	var head [4]byte
	copy(head[:], b[:4])
	for _, prefix := range httpRequestPrefixes {
		if head == prefix {
			return true
		}
	}
	return false
}

// isHTTPResponse reports the "HTTP" + "/" at offset 4 case spec.md §4.3
// describes for response lines (e.g. "HTTP/1.1 200 OK").
func isHTTPResponse(b []byte) bool {
	if len(b) < 5 {
		return false
	}
	return string(b[:4]) == "HTTP" && b[4] == '/'
}

// Detect classifies the bytes buffered so far for a transaction whose
// remote port is remotePort. It never mutates buf's contents, only reads
// it; callers append new payload to buf themselves before calling Detect
// again (spec.md §4.2 "re-run detection" on subsequent events).
//
// Detect defaults to the least-specific result (IP, no parser) whenever the
// available bytes are insufficient to decide — spec.md §4.3's boundary
// behaviors require exactly this: "on 3 bytes, returns IP"; a MySQL header
// short of 5 bytes also returns IP "for now".
func Detect(buf *ReassemblyBuffer, remotePort uint16) (Type, *Parser) {
	b := buf.Bytes()

	if len(b) >= 4 && (hasHTTPRequestPrefix(b) || isHTTPResponse(b)) {
		return HTTP, NewParser(HTTP)
	}

	if remotePort == MySQLPort {
		if len(b) < 5 {
			return IP, nil
		}
		// All length checks are unsigned; callers guarantee the buffered
		// length fits the decoded wire length (spec.md §4.3 numeric
		// semantics), so there is no wrap-around to guard against here.
		declaredLen := binary.LittleEndian.Uint16(b[0:2])
		thirdByteZero := b[2] == 0x00
		seqByteZero := b[3] == 0
		if uint16(len(b))-4 == declaredLen && thirdByteZero && seqByteZero {
			return MySQL, NewParser(MySQL)
		}
		return IP, nil
	}

	return IP, nil
}
