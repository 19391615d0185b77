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

import "testing"

func TestDetectHTTPRequestExact4Bytes(t *testing.T) {
	buf := NewReassemblyBuffer(16)
	buf.Append([]byte("GET "))
	typ, parser := Detect(buf, 80)
	if typ != HTTP {
		t.Fatalf("expected HTTP, got %s", typ)
	}
	if parser == nil || parser.Kind != HTTP {
		t.Fatal("expected an HTTP parser")
	}
}

func TestDetectInsufficientBytesReturnsIP(t *testing.T) {
	buf := NewReassemblyBuffer(16)
	buf.Append([]byte("GET"))
	typ, parser := Detect(buf, 80)
	if typ != IP {
		t.Fatalf("expected IP on 3 bytes, got %s", typ)
	}
	if parser != nil {
		t.Fatal("expected no parser for IP")
	}
}

func TestDetectHTTPResponseRequiresSlashAtOffset4(t *testing.T) {
	buf := NewReassemblyBuffer(16)
	buf.Append([]byte("HTTPX"))
	typ, _ := Detect(buf, 80)
	if typ != IP {
		t.Fatalf("expected IP when byte 4 is not '/', got %s", typ)
	}

	buf2 := NewReassemblyBuffer(16)
	buf2.Append([]byte("HTTP/1.1 200 OK"))
	typ2, parser2 := Detect(buf2, 80)
	if typ2 != HTTP {
		t.Fatalf("expected HTTP response detection, got %s", typ2)
	}
	if parser2.HTTP.Responses != 0 {
		t.Fatal("Detect itself must not feed the parser")
	}
}

func TestDetectMySQLRequiresAtLeast5BufferedBytes(t *testing.T) {
	buf := NewReassemblyBuffer(16)
	buf.Append([]byte{0x01, 0x00, 0x00, 0x00})
	typ, _ := Detect(buf, MySQLPort)
	if typ != IP {
		t.Fatalf("expected IP with only 4 buffered bytes, got %s", typ)
	}
}

func TestDetectMySQLHeaderMatch(t *testing.T) {
	buf := NewReassemblyBuffer(16)
	// declared length 1, seq 0, one payload byte.
	buf.Append([]byte{0x01, 0x00, 0x00, 0x00, 0xAA})
	typ, parser := Detect(buf, MySQLPort)
	if typ != MySQL {
		t.Fatalf("expected MYSQL, got %s", typ)
	}
	if parser == nil || parser.Kind != MySQL {
		t.Fatal("expected a MySQL parser")
	}
}

func TestDetectMySQLGatedOnPort(t *testing.T) {
	buf := NewReassemblyBuffer(16)
	buf.Append([]byte{0x01, 0x00, 0x00, 0x00, 0xAA})
	typ, _ := Detect(buf, 5432)
	if typ != IP {
		t.Fatalf("expected IP when remote port is not 3306, got %s", typ)
	}
}

func TestDetectMySQLLengthMismatchFallsBackToIP(t *testing.T) {
	buf := NewReassemblyBuffer(16)
	buf.Append([]byte{0x05, 0x00, 0x00, 0x00, 0xAA})
	typ, _ := Detect(buf, MySQLPort)
	if typ != IP {
		t.Fatalf("expected IP on declared-length mismatch, got %s", typ)
	}
}

func TestHasHTTPRequestPrefixKnownVerbs(t *testing.T) {
	cases := []string{"GET ", "POST", "PUT ", "DELE", "TRAC", "CONN", "OPTI", "HEAD"}
	for _, c := range cases {
		if !hasHTTPRequestPrefix([]byte(c)) {
			t.Errorf("expected %q to match an HTTP request prefix", c)
		}
	}
	if hasHTTPRequestPrefix([]byte("XXXX")) {
		t.Error("unexpected match for non-HTTP prefix")
	}
}
