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
	"strings"
	"testing"
)

func TestOperationTypeKnown(t *testing.T) {
	known := []OperationType{
		OpDropColumn, OpDropTable, OpAlterColumn, OpRenameColumn,
		OpAddColumn, OpCreateTable, OpCreateIndex, OpDropIndex,
	}
	for _, op := range known {
		if !op.Known() {
			t.Errorf("%s should be known", op)
		}
	}
	for _, op := range []OperationType{"", "truncate_table", "DROP_COLUMN"} {
		if op.Known() {
			t.Errorf("%q should not be known", op)
		}
	}
}

func TestOperationTypeDestructive(t *testing.T) {
	tests := []struct {
		op   OperationType
		want bool
	}{
		{OpDropColumn, true},
		{OpDropTable, true},
		{OpAlterColumn, true},
		{OpRenameColumn, false},
		{OpAddColumn, false},
		{OpCreateTable, false},
		{OpCreateIndex, false},
		{OpDropIndex, false},
	}
	for _, tt := range tests {
		if got := tt.op.Destructive(); got != tt.want {
			t.Errorf("%s.Destructive() = %v, want %v", tt.op, got, tt.want)
		}
	}
}

func TestParseReferentialAction(t *testing.T) {
	tests := []struct {
		in   string
		want ReferentialAction
	}{
		{"CASCADE", ActionCascade},
		{"cascade", ActionCascade},
		{" Restrict ", ActionRestrict},
		{"SET NULL", ActionSetNull},
		{"set default", ActionSetDefault},
		{"NO ACTION", ActionNoAction},
		{"", ActionNoAction},
		{"SOMETHING ELSE", ActionNoAction},
	}
	for _, tt := range tests {
		if got := ParseReferentialAction(tt.in); got != tt.want {
			t.Errorf("ParseReferentialAction(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestForeignKeyDependencyCascades(t *testing.T) {
	fk := ForeignKeyDependency{OnDelete: ActionCascade, OnUpdate: ActionNoAction}
	if !fk.Cascades() {
		t.Error("ON DELETE CASCADE should cascade")
	}
	fk = ForeignKeyDependency{OnDelete: ActionNoAction, OnUpdate: ActionCascade}
	if !fk.Cascades() {
		t.Error("ON UPDATE CASCADE should cascade")
	}
	fk = ForeignKeyDependency{OnDelete: ActionRestrict, OnUpdate: ActionRestrict}
	if fk.Cascades() {
		t.Error("RESTRICT should not cascade")
	}
	if !fk.Restrictive() {
		t.Error("RESTRICT on delete should be restrictive")
	}
}

func TestSanitizeIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"users", "users"},
		{"public.users", "public.users"},
		{"user_accounts$2", "user_accounts$2"},
		{"users; DROP TABLE students--", "usersDROPTABLEstudents"},
		{`"quoted"`, "quoted"},
		{"tab\tand\nnewline", "tabandnewline"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeIdentifier(tt.in); got != tt.want {
			t.Errorf("SanitizeIdentifier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := strings.Repeat("a", 100)
	if got := SanitizeIdentifier(long); len(got) != 63 {
		t.Errorf("long identifier truncated to %d bytes, want 63", len(got))
	}
}

func TestOperationValidate(t *testing.T) {
	t.Run("valid descriptor", func(t *testing.T) {
		op := Operation{Table: "accounts", Column: "id", Type: OpDropColumn}
		if err := op.Validate(); err != nil {
			t.Fatalf("Validate() = %v, want nil", err)
		}
	})

	t.Run("missing table", func(t *testing.T) {
		op := Operation{Type: OpDropTable}
		err := op.Validate()
		if !errors.Is(err, ErrInvalidOperation) {
			t.Fatalf("Validate() = %v, want ErrInvalidOperation", err)
		}
	})

	t.Run("unknown operation type", func(t *testing.T) {
		op := Operation{Table: "accounts", Type: "truncate_table"}
		err := op.Validate()
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("Validate() = %v, want *ValidationError", err)
		}
		if verr.Field != "operation_type" {
			t.Errorf("Field = %q, want operation_type", verr.Field)
		}
	})

	t.Run("column required for column operations", func(t *testing.T) {
		for _, typ := range []OperationType{OpDropColumn, OpAlterColumn, OpRenameColumn} {
			op := Operation{Table: "accounts", Type: typ}
			if err := op.Validate(); !errors.Is(err, ErrInvalidOperation) {
				t.Errorf("%s without column: Validate() = %v, want ErrInvalidOperation", typ, err)
			}
		}
	})

	t.Run("negative sizes rejected", func(t *testing.T) {
		op := Operation{Table: "accounts", Type: OpDropTable, EstimatedRows: -1}
		if err := op.Validate(); !errors.Is(err, ErrInvalidOperation) {
			t.Fatalf("Validate() = %v, want ErrInvalidOperation", err)
		}
	})
}
