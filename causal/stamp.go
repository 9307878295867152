// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package causal

import (
	"strconv"
	"strings"
)

// Stamp is an immutable snapshot of a Clock.  It is the header of every trace record.
type Stamp struct {
	// ContextID is the identity of the context that owned the clock
	ContextID ContextID `json:"context_id" msgpack:"context_id"`

	// Path is the fork lineage followed by the local event counter
	Path []uint64 `json:"path" msgpack:"path"`

	// Epoch is the time of the most recent bump, in microseconds since the Unix epoch
	Epoch uint64 `json:"epoch_us" msgpack:"epoch_us"`
}

// Depth is the number of elements in the path, i.e. the fork depth plus one
func (s Stamp) Depth() int {
	return len(s.Path)
}

// Counter returns the last element of the path, which is the local event counter
func (s Stamp) Counter() uint64 {
	if len(s.Path) == 0 {
		return 0
	}

	return s.Path[len(s.Path)-1]
}

// String produces the human-readable form of this stamp, which is also the publish key
// of records carrying this stamp.  For example, "context 3 path [4 2] epoch 1700000000000000".
func (s Stamp) String() string {
	var output strings.Builder
	output.WriteString("context ")
	output.WriteString(s.ContextID.String())
	output.WriteString(" path [")
	for i, p := range s.Path {
		if i > 0 {
			output.WriteRune(' ')
		}

		output.WriteString(strconv.FormatUint(p, 10))
	}

	output.WriteString("] epoch ")
	output.WriteString(strconv.FormatUint(s.Epoch, 10))
	return output.String()
}
