// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package catalog

import (
	"errors"
	"fmt"
)

// ErrCatalogUnavailable indicates the catalog could not be reached or
// queried. Returned only under the FailClosed policy; FailOpen degrades
// to an empty report instead.
var ErrCatalogUnavailable = errors.New("catalog unavailable")

// ConnectivityError wraps a catalog query failure with the lookup that
// failed. Matches ErrCatalogUnavailable via errors.Is.
type ConnectivityError struct {
	// Lookup names the failed dependency class (foreign_key, view, index).
	Lookup DependencyType

	// Err is the underlying query error.
	Err error
}

// Error implements the error interface.
func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%v: %s lookup: %v", ErrCatalogUnavailable, e.Lookup, e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is/As.
func (e *ConnectivityError) Unwrap() []error {
	return []error{ErrCatalogUnavailable, e.Err}
}
