// Package identity issues identity tokens and connection handles.
package identity

import (
	"github.com/google/uuid"

	"github.com/mcoot/typerace/internal/model"
)

// Generator issues opaque identifiers
type Generator interface {
	NewPlayerID() model.PlayerID
	NewConnID() model.ConnID
}

// UUIDGenerator issues random (v4) UUIDs
type UUIDGenerator struct{}

// New creates a UUIDGenerator
func New() *UUIDGenerator {
	return &UUIDGenerator{}
}

// NewPlayerID issues a fresh identity token
func (g *UUIDGenerator) NewPlayerID() model.PlayerID {
	return model.PlayerID(uuid.NewString())
}

// NewConnID issues a fresh connection handle
func (g *UUIDGenerator) NewConnID() model.ConnID {
	return model.ConnID(uuid.NewString())
}
