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

import "bytes"

// Parser is a tagged variant over the nested protocol parsers spec.md §3
// allows a Partial Transaction to own. spec.md §9 asks for tagged variants
// in place of the original's polymorphic parser base class; Kind selects
// which of the two state structs, if either, is meaningful. This is not a
// full application-layer parser (spec.md §1 non-goal: "does not parse full
// application-layer protocols, only enough to classify") — it tracks just
// enough to be useful downstream (request/response and sequence counts).
type Parser struct {
	Kind  Type
	HTTP  HTTPState
	MySQL MySQLState
}

// NewParser returns a zero-value parser of the given kind. kind must be
// HTTP, MySQL, or IP (IP/Unknown carry no parser state, Feed is then a
// no-op).
func NewParser(kind Type) *Parser {
	return &Parser{Kind: kind}
}

// Feed advances whichever nested parser is active with one payload chunk.
func (p *Parser) Feed(payload []byte) {
	if p == nil {
		return
	}
	switch p.Kind {
	case HTTP:
		p.HTTP.Feed(payload)
	case MySQL:
		p.MySQL.Feed(payload)
	}
}

// HTTPState is the minimal HTTP discovery parser: it only counts
// request/response lines, enough to tell a client-role transaction from a
// server-role one without decoding headers or bodies.
type HTTPState struct {
	Requests  uint64
	Responses uint64
}

func (s *HTTPState) Feed(payload []byte) {
	if len(payload) >= 5 && bytes.HasPrefix(payload, []byte("HTTP/")) {
		s.Responses++
		return
	}
	if hasHTTPRequestPrefix(payload) {
		s.Requests++
	}
}

// MySQLState is the minimal MySQL discovery parser: it counts payload
// chunks of at least a packet header's length (4 bytes), without reading
// the sequence id or decoding the protocol payload.
type MySQLState struct {
	Packets uint64
}

func (s *MySQLState) Feed(payload []byte) {
	if len(payload) >= 4 {
		s.Packets++
	}
}
