// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package causal

import "fmt"

// Level is the severity of a trace record
type Level int

const (
	Trace Level = iota
	Debug
)

func (l Level) String() string {
	switch l {
	case Trace:
		return "Trace"
	case Debug:
		return "Debug"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// CodeAttributes is the static call-site metadata attached to every record
type CodeAttributes struct {
	Module   string `json:"module" msgpack:"module"`
	Function string `json:"function" msgpack:"function"`
	LineNo   uint32 `json:"line_no" msgpack:"line_no"`
	Format   string `json:"format" msgpack:"format"`
}

// Record is the document published for each trace event.  Header is the clock
// state immediately after the event's bump.
type Record struct {
	Header Stamp          `json:"header" msgpack:"header"`
	Level  string         `json:"level" msgpack:"level"`
	Code   CodeAttributes `json:"code" msgpack:"code"`
	Body   interface{}    `json:"body" msgpack:"body"`
}
