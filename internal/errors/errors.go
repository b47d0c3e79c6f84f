// Copyright (c) 2026 dotandev
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

package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for comparison with errors.Is
var (
	// ErrMalformed covers undecodable input: bad magic, truncated sections,
	// overlong LEB128, unknown opcodes, operand stack underflow or type
	// mismatch. Always carries the byte offset where decoding gave up.
	ErrMalformed = errors.New("malformed module")

	// ErrInvariant signals a broken normalizer postcondition. This is an
	// internal defect, not an input problem.
	ErrInvariant = errors.New("structural invariant violated")

	// ErrIrreducible marks control flow that cannot be folded into
	// structured statements. The function still produces degraded output.
	ErrIrreducible = errors.New("irreducible control flow")

	// ErrUnsupported marks post-MVP instructions (SIMD, reference types,
	// multi-memory) that the decompiler deliberately does not model.
	ErrUnsupported = errors.New("unsupported instruction")

	ErrFunctionNotFound = errors.New("function not found")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrCacheUnavailable = errors.New("cache unavailable")
)

// Wrap functions for consistent error wrapping

func WrapMalformed(offset int, format string, args ...any) error {
	return fmt.Errorf("%w: offset 0x%x: %s", ErrMalformed, offset, fmt.Sprintf(format, args...))
}

func WrapInvariant(pass string, format string, args ...any) error {
	return fmt.Errorf("%w: pass %s: %s", ErrInvariant, pass, fmt.Sprintf(format, args...))
}

func WrapIrreducible(funcIndex uint32, reason string) error {
	return fmt.Errorf("%w: func %d: %s", ErrIrreducible, funcIndex, reason)
}

func WrapUnsupported(offset int, what string) error {
	return fmt.Errorf("%w: offset 0x%x: %s", ErrUnsupported, offset, what)
}

func WrapFunctionNotFound(index uint32) error {
	return fmt.Errorf("%w: index %d", ErrFunctionNotFound, index)
}

func WrapConfigError(msg string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrConfigInvalid, msg, err)
}

func WrapCacheError(err error) error {
	return fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
}
