// Package migration is the API migration scripts are written against.
//
// A Go script is a main package defining Upgrade:
//
//	package main
//
//	import "github.com/0x5457/stitcher/pkg/migration"
//
//	func Upgrade(spec *migration.Spec) {
//		spec.Add(migration.Rename("pkg.core.Old", "pkg.core.New"))
//		spec.Add(migration.Move("pkg/core.py", "pkg/engine/core.py"))
//	}
//
// Upgrade may also return an error to abort the migration.
package migration

import (
	"reflect"

	"github.com/0x5457/stitcher/internal/refactor"
	"github.com/traefik/yaegi/interp"
)

type (
	Spec      = refactor.MigrationSpec
	Operation = refactor.Operation
)

func NewSpec() *Spec { return refactor.NewMigrationSpec() }

// Rename renames a symbol given by fully qualified name.
func Rename(oldFQN, newFQN string) Operation {
	return refactor.RenameSymbol{Old: oldFQN, New: newFQN}
}

// Move moves one source file with its sidecars.
func Move(src, dest string) Operation {
	return refactor.MoveFile{Src: src, Dest: dest}
}

func MoveDir(src, dest string) Operation {
	return refactor.MoveDirectory{Src: src, Dest: dest}
}

func RenameNamespace(oldPrefix, newPrefix string) Operation {
	return refactor.RenameNamespace{OldPrefix: oldPrefix, NewPrefix: newPrefix}
}

// Symbols exposes this package to the script interpreter.
var Symbols = interp.Exports{
	"github.com/0x5457/stitcher/pkg/migration/migration": {
		"Spec":            reflect.ValueOf((*Spec)(nil)),
		"Operation":       reflect.ValueOf((*Operation)(nil)),
		"NewSpec":         reflect.ValueOf(NewSpec),
		"Rename":          reflect.ValueOf(Rename),
		"Move":            reflect.ValueOf(Move),
		"MoveDir":         reflect.ValueOf(MoveDir),
		"RenameNamespace": reflect.ValueOf(RenameNamespace),
	},
}
