package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/typerace/internal/dependencies/identity"
	"github.com/mcoot/typerace/internal/model"
)

// MockIdentity issues predictable identifiers: "player-1", "conn-1", ...
type MockIdentity struct {
	mu      sync.Mutex
	players int
	conns   int
}

var _ identity.Generator = (*MockIdentity)(nil)

// NewMockIdentity creates a new MockIdentity
func NewMockIdentity() *MockIdentity {
	return &MockIdentity{}
}

// NewPlayerID returns the next player identifier
func (g *MockIdentity) NewPlayerID() model.PlayerID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.players++
	return model.PlayerID(fmt.Sprintf("player-%d", g.players))
}

// NewConnID returns the next connection identifier
func (g *MockIdentity) NewConnID() model.ConnID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.conns++
	return model.ConnID(fmt.Sprintf("conn-%d", g.conns))
}
