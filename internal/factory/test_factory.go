package factory

import (
	"time"

	"github.com/mcoot/typerace/internal/dependencies/mocks"
	"github.com/mcoot/typerace/internal/events"
	"github.com/mcoot/typerace/internal/storage/memory"
	"github.com/mcoot/typerace/internal/testutil"
	"github.com/mcoot/typerace/internal/transport/ws"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock    *mocks.MockClock
	MockRandom   *mocks.MockRandom
	MockIdentity *mocks.MockIdentity
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	mockIdentity := mocks.NewMockIdentity()

	app := newWithDependencies(store, mockClock, mockRandom, mockIdentity, events.Nop{}, ws.DefaultOptions(), testutil.NopLogger())

	return &TestApp{
		App:          app,
		MockClock:    mockClock,
		MockRandom:   mockRandom,
		MockIdentity: mockIdentity,
	}
}
