//go:build integration

package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"edustream/internal/audit"
	"edustream/internal/events"
	"edustream/pkg/testutil/containers"
)

type PostgresTrailSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	trail    *audit.PostgresTrail
	ctx      context.Context
}

func TestPostgresTrailSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresTrailSuite))
}

func (s *PostgresTrailSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.postgres.ApplySchema(s.T(), audit.Schema)
	s.trail = audit.NewPostgresTrail(s.postgres.DB)
	s.ctx = context.Background()
}

func (s *PostgresTrailSuite) SetupTest() {
	_, err := s.postgres.DB.Exec("TRUNCATE audit_events")
	s.Require().NoError(err)
}

func (s *PostgresTrailSuite) event(aggregateID string) events.Event {
	e, err := events.New(events.AggregatePayment, aggregateID, events.TypePaymentCompleted, 1, events.PaymentCompletedPayload{
		PaymentID: "p-1", StudentID: "student-7", Amount: 49.99, Currency: "EUR",
	})
	s.Require().NoError(err)
	e.UserID = "user-1"
	return e
}

func (s *PostgresTrailSuite) TestLogRecordsEvent() {
	event := s.event("payment-1")
	s.Require().NoError(s.trail.Log(s.ctx, event))

	entries, err := s.trail.ListRecent(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)

	s.Equal(event.ID, entries[0].ID)
	s.Equal(string(events.TypePaymentCompleted), entries[0].EventType)
	s.Equal(events.AggregatePayment, entries[0].AggregateType)
	s.Equal("payment-1", entries[0].AggregateID)
	s.Equal(int64(1), entries[0].Version)
	s.Equal("user-1", entries[0].UserID)
	s.False(entries[0].RecordedAt.IsZero())
}

func (s *PostgresTrailSuite) TestLogIsIdempotentOnEventID() {
	event := s.event("payment-1")

	// Redelivery logs the same event id again; the trail keeps one row.
	s.Require().NoError(s.trail.Log(s.ctx, event))
	s.Require().NoError(s.trail.Log(s.ctx, event))

	entries, err := s.trail.ListRecent(s.ctx, 10)
	s.Require().NoError(err)
	s.Len(entries, 1)
}

func (s *PostgresTrailSuite) TestLogWithoutUserID() {
	event := s.event("payment-2")
	event.UserID = ""
	s.Require().NoError(s.trail.Log(s.ctx, event))

	entries, err := s.trail.ListRecent(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Empty(entries[0].UserID)
}

func (s *PostgresTrailSuite) TestListRecentOrderingAndLimit() {
	first := s.event("payment-1")
	second := s.event("payment-2")
	third := s.event("payment-3")

	for _, e := range []events.Event{first, second, third} {
		s.Require().NoError(s.trail.Log(s.ctx, e))
		// recorded_at defaults to now(); space the inserts so the order is
		// unambiguous.
		time.Sleep(10 * time.Millisecond)
	}

	entries, err := s.trail.ListRecent(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(third.ID, entries[0].ID)
	s.Equal(second.ID, entries[1].ID)
}
