// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package causal

import (
	"fmt"
	"strings"

	"github.com/ugorji/go/codec"
)

// Format indicates how trace records are encoded into payloads
type Format int

const (
	JSON Format = iota
	Msgpack
)

var (
	// handles contains the canonical codec.Handle for each Format, in order of the Format constants
	handles = []codec.Handle{
		&codec.JsonHandle{
			BasicHandle: codec.BasicHandle{
				TypeInfos: codec.NewTypeInfos([]string{"json"}),
			},
			IntegerAsString: 'L',
		},
		&codec.MsgpackHandle{
			BasicHandle: codec.BasicHandle{
				TypeInfos: codec.NewTypeInfos([]string{"msgpack"}),
			},
			WriteExt: true,
		},
	}

	formatNames = []string{"json", "msgpack"}
)

// handle looks up the appropriate codec.Handle for this format constant.
// This method returns nil if the format value is invalid.
func (f Format) handle() codec.Handle {
	if f >= 0 && int(f) < len(handles) {
		return handles[f]
	}

	return nil
}

func (f Format) String() string {
	if f >= 0 && int(f) < len(formatNames) {
		return formatNames[f]
	}

	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat converts a case-insensitive format name into a Format.  The empty string is JSON.
func ParseFormat(v string) (Format, error) {
	switch strings.ToLower(v) {
	case "", "json":
		return JSON, nil
	case "msgpack":
		return Msgpack, nil
	default:
		return JSON, fmt.Errorf("%w: %q", ErrInvalidFormat, v)
	}
}

// Encode marshals v using this format.  Values that the codec would silently drop or
// corrupt, such as funcs or NaN in JSON, are rejected with ErrUnsupportedValue.
func (f Format) Encode(v interface{}) ([]byte, error) {
	h := f.handle()
	if h == nil {
		return nil, ErrInvalidFormat
	}

	if err := f.Check(v); err != nil {
		return nil, err
	}

	var output []byte
	if err := codec.NewEncoderBytes(&output, h).Encode(v); err != nil {
		return nil, err
	}

	return output, nil
}

// Decode unmarshals data into v using this format
func (f Format) Decode(data []byte, v interface{}) error {
	h := f.handle()
	if h == nil {
		return ErrInvalidFormat
	}

	return codec.NewDecoderBytes(data, h).Decode(v)
}
