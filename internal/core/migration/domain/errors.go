package domain

import (
	"errors"

	"github.com/satishbabariya/migrant/internal/core/migration/serializer"
)

var (
	// ErrNoEngine is returned when a manager is run without an engine.
	ErrNoEngine = errors.New("no database engine configured")

	// ErrModuleNotRegistered is returned for an unknown module id.
	ErrModuleNotRegistered = errors.New("module not registered")

	// ErrUnresolvedReference is returned when a serialized reference cannot be resolved.
	ErrUnresolvedReference = serializer.ErrUnresolvedReference

	// ErrUnknownKind is returned for column kinds that do not exist.
	ErrUnknownKind = serializer.ErrUnknownKind

	// ErrIdentityMismatch is returned when subtracting two different tables.
	ErrIdentityMismatch = errors.New("table identities differ")

	// ErrUnsupported is returned by engines that cannot perform an operation.
	ErrUnsupported = errors.New("operation not supported by engine")

	// ErrNoChanges is returned when the live schema matches the snapshot.
	ErrNoChanges = errors.New("no changes detected")

	// ErrMigrationNotFound is returned for an unknown migration id.
	ErrMigrationNotFound = errors.New("migration not found")
)
