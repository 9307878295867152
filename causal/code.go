// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package causal

import (
	"path"
	"runtime"
	"strings"
)

// Here captures the CodeAttributes of its caller: the source file relative to its
// directory, the package-qualified function, and the line.
func Here(format string) CodeAttributes {
	return caller(2, format)
}

func caller(skip int, format string) CodeAttributes {
	code := CodeAttributes{Format: format}
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return code
	}

	code.Module = path.Join(path.Base(path.Dir(file)), path.Base(file))
	code.LineNo = uint32(line)
	if f := runtime.FuncForPC(pc); f != nil {
		name := f.Name()
		if slash := strings.LastIndexByte(name, '/'); slash >= 0 {
			name = name[slash+1:]
		}

		code.Function = name
	}

	return code
}
