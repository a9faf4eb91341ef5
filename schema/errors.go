// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package schema

import (
	"errors"
	"fmt"
)

// ErrInvalidOperation is the sentinel wrapped by every ValidationError.
// Callers branch with errors.Is(err, schema.ErrInvalidOperation).
var ErrInvalidOperation = errors.New("invalid migration operation")

// ValidationError reports a malformed operation descriptor or identifier.
type ValidationError struct {
	// Field is the descriptor field that failed validation.
	Field string

	// Reason is a human-readable explanation.
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrInvalidOperation, e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidOperation.
func (e *ValidationError) Unwrap() error { return ErrInvalidOperation }
