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
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// structValidator returns the shared validator instance. validator.Validate
// caches struct metadata internally and is safe for concurrent use.
func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the descriptor before any analysis touches it.
//
// Description:
//
//	Validates struct tags (required table, non-negative sizes) and
//	rejects operation types this module does not understand. An unknown
//	type is a distinguishable ValidationError, never a silently
//	conservative score.
//
// Outputs:
//
//	error - nil when valid, *ValidationError otherwise.
func (o *Operation) Validate() error {
	if err := structValidator().Struct(o); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			return &ValidationError{
				Field:  verrs[0].Field(),
				Reason: "failed " + verrs[0].Tag() + " constraint",
			}
		}
		return &ValidationError{Field: "operation", Reason: err.Error()}
	}
	if !o.Type.Known() {
		return &ValidationError{
			Field:  "operation_type",
			Reason: "unknown operation type " + string(o.Type),
		}
	}
	if o.Type == OpDropColumn || o.Type == OpAlterColumn || o.Type == OpRenameColumn {
		if o.Column == "" {
			return &ValidationError{
				Field:  "column",
				Reason: "column is required for " + string(o.Type),
			}
		}
	}
	return nil
}
