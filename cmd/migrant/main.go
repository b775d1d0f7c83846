// Package main is the entry point for the migrant CLI.
//
// This binary has no migration units compiled in. The configured module is
// registered empty, which is enough for blank migrations, status and the
// first migration of a .tables schema. Applications build their own entry
// point that registers their modules:
//
//	func main() {
//		registry := migrant.NewRegistry()
//		registry.MustRegister(bands.Module())
//		commands.Execute(registry)
//	}
package main

import (
	"github.com/satishbabariya/migrant/cmd/migrant/commands"
	"github.com/satishbabariya/migrant/pkg/migrant"
)

func main() {
	commands.Execute(migrant.NewRegistry())
}
