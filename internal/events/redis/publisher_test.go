package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/typerace/internal/dependencies/mocks"
	"github.com/mcoot/typerace/internal/events"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/protocol"
)

type PublisherSuite struct {
	suite.Suite
	mini      *miniredis.Miniredis
	client    *redis.Client
	clock     *mocks.MockClock
	publisher *Publisher
	ctx       context.Context
}

func TestPublisherSuite(t *testing.T) {
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	s.client = redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.publisher = NewWithClient(s.client, s.clock)
	s.ctx = context.Background()
}

func (s *PublisherSuite) TearDownTest() {
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *PublisherSuite) subscribe(channel string) *redis.PubSub {
	observer := redis.NewClient(&redis.Options{Addr: s.mini.Addr()})
	s.T().Cleanup(func() { _ = observer.Close() })

	sub := observer.Subscribe(s.ctx, channel)
	// Wait for the subscription to be confirmed before publishing
	_, err := sub.Receive(s.ctx)
	s.Require().NoError(err)
	return sub
}

func (s *PublisherSuite) TestPublishToRoomChannel() {
	sub := s.subscribe("typerace:room:ABC123")
	defer sub.Close()

	err := s.publisher.Publish(s.ctx, "ABC123", model.EventPlayerList, []protocol.PlayerPayload{
		{ID: "p1", Name: "Alice", WPM: 42},
	})
	s.Require().NoError(err)

	select {
	case raw := <-sub.Channel():
		var msg events.Message
		s.Require().NoError(json.Unmarshal([]byte(raw.Payload), &msg))
		s.Equal(model.EventPlayerList, msg.Event)
		s.Equal(model.RoomCode("ABC123"), msg.RoomCode)
		s.Equal(s.clock.Now().UnixMilli(), msg.At)

		var players []protocol.PlayerPayload
		s.Require().NoError(json.Unmarshal(msg.Data, &players))
		s.Equal([]protocol.PlayerPayload{{ID: "p1", Name: "Alice", WPM: 42}}, players)
	case <-time.After(2 * time.Second):
		s.Fail("timed out waiting for mirrored event")
	}
}

func (s *PublisherSuite) TestPublishWithoutSubscribersSucceeds() {
	s.NoError(s.publisher.Publish(s.ctx, "ABC123", model.EventHostChanged, "p2"))
}

func (s *PublisherSuite) TestPublishFailsWhenRedisIsDown() {
	s.mini.Close()

	err := s.publisher.Publish(s.ctx, "ABC123", model.EventHostChanged, "p2")
	s.Error(err)
}

func (s *PublisherSuite) TestNewRejectsBadURL() {
	_, err := New(Config{URL: "not a url"}, s.clock)
	s.Error(err)
}

func (s *PublisherSuite) TestNewConnects() {
	cfg := DefaultConfig()
	cfg.URL = "redis://" + s.mini.Addr()

	publisher, err := New(cfg, s.clock)
	s.Require().NoError(err)
	defer publisher.Close()

	s.NoError(publisher.Publish(s.ctx, "ABC123", model.EventHostChanged, "p2"))
}

func TestRoomChannel(t *testing.T) {
	if got := RoomChannel("ABC123"); got != "typerace:room:ABC123" {
		t.Errorf("RoomChannel() = %q", got)
	}
	if got := AllRoomsPattern(); got != "typerace:room:*" {
		t.Errorf("AllRoomsPattern() = %q", got)
	}
}
