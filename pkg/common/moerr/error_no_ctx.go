// Copyright 2023 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package moerr

import "context"

var noCtx = context.Background()

// Context returns the context used by the NoCtx constructors.
func Context() context.Context {
	return noCtx
}

func NewInternalErrorNoCtx(msg string) *Error {
	return newError(noCtx, ErrInternal, msg)
}

func NewInternalErrorNoCtxf(format string, args ...any) *Error {
	return NewInternalError(noCtx, format, args...)
}

func NewNYINoCtx(msg string) *Error {
	return newError(noCtx, ErrNYI, msg)
}

func NewNotSupportedNoCtx(msg string) *Error {
	return newError(noCtx, ErrNotSupported, msg)
}

func NewNotSupportedNoCtxf(format string, args ...any) *Error {
	return NewNotSupported(noCtx, format, args...)
}

func NewOOMNoCtx() *Error {
	return newError(noCtx, ErrOOM)
}

func NewInvalidInputNoCtx(msg string) *Error {
	return newError(noCtx, ErrInvalidInput, msg)
}

func NewInvalidInputNoCtxf(format string, args ...any) *Error {
	return NewInvalidInput(noCtx, format, args...)
}

func NewInvalidArgNoCtx(arg string, val any) *Error {
	return NewInvalidArg(noCtx, arg, val)
}

func NewBadConfigNoCtx(msg string) *Error {
	return newError(noCtx, ErrBadConfig, msg)
}

func NewUnexpectedEOFNoCtx(f string) *Error {
	return NewUnexpectedEOF(Context(), f)
}
