package connector

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"vcbridge/pkg/config"
	"vcbridge/pkg/liveness"
	"vcbridge/pkg/vsphere"
)

type PoolSuite struct {
	suite.Suite

	redis  *miniredis.Miniredis
	store  *liveness.Store
	dialer *vsphere.FakeDialer
	pool   *Pool
}

func (s *PoolSuite) SetupTest() {
	s.redis = miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: s.redis.Addr()})
	s.store = liveness.New(client, 120*time.Second)

	s.dialer = vsphere.NewFakeDialer()
	s.dialer.Clients["vc-a"] = vsphere.NewFakeClient("dc-a")
	s.dialer.Clients["vc-b"] = vsphere.NewFakeClient("dc-b")

	endpoints, err := config.NewEndpoints(
		config.Endpoint{Name: "vc-a", Hostname: "vc-a.local", Port: 443, Username: "ro", Password: "x"},
		config.Endpoint{Name: "vc-b", Hostname: "vc-b.local", Port: 443, Username: "ro", Password: "x"},
	)
	s.Require().NoError(err)

	settings := config.DefaultSettings()
	settings.RetryInterval = time.Millisecond
	settings.MaxRetries = 2

	s.pool = New(endpoints, s.dialer, s.store, settings)
}

func (s *PoolSuite) TestAcquireConnectsAllEndpoints() {
	sessions, err := s.pool.AcquireSessions(context.Background())

	s.Require().NoError(err)
	s.Require().Len(sessions, 2)
	s.Equal(1, s.dialer.DialCalls["vc-a"])
	s.Equal(1, s.dialer.DialCalls["vc-b"])

	status, err := s.store.Get(context.Background(), "vc-a")
	s.Require().NoError(err)
	s.Equal(liveness.StatusAlive, status)
}

func (s *PoolSuite) TestAcquireReusesHealthySessions() {
	_, err := s.pool.AcquireSessions(context.Background())
	s.Require().NoError(err)

	sessions, err := s.pool.AcquireSessions(context.Background())
	s.Require().NoError(err)

	s.Len(sessions, 2)
	s.Equal(1, s.dialer.DialCalls["vc-a"], "healthy session must not be re-dialed")
	s.Equal(1, s.dialer.Clients["vc-a"].CallCount("CurrentTime"), "second pass probes instead")
}

func (s *PoolSuite) TestProbeFailureTriggersReconnect() {
	_, err := s.pool.AcquireSessions(context.Background())
	s.Require().NoError(err)

	s.dialer.Clients["vc-a"].ProbeErr = syscall.ECONNREFUSED

	sessions, err := s.pool.AcquireSessions(context.Background())
	s.Require().NoError(err)

	s.Contains(sessions, "vc-a")
	s.Equal(2, s.dialer.DialCalls["vc-a"])
}

func (s *PoolSuite) TestUnreachableEndpointIsDeadMarked() {
	s.dialer.DialErr["vc-b"] = syscall.ECONNREFUSED

	sessions, err := s.pool.AcquireSessions(context.Background())
	s.Require().NoError(err)

	s.Len(sessions, 1)
	s.Contains(sessions, "vc-a")
	s.Equal(2, s.dialer.DialCalls["vc-b"], "retry budget is two attempts")

	dead, err := s.store.IsDead(context.Background(), "vc-b")
	s.Require().NoError(err)
	s.True(dead)
}

func (s *PoolSuite) TestDownedEndpointOverwritesAliveRecord() {
	_, err := s.pool.AcquireSessions(context.Background())
	s.Require().NoError(err)

	status, err := s.store.Get(context.Background(), "vc-b")
	s.Require().NoError(err)
	s.Require().Equal(liveness.StatusAlive, status)

	s.dialer.Clients["vc-b"].ProbeErr = syscall.ECONNREFUSED
	s.dialer.DialErr["vc-b"] = syscall.ECONNREFUSED

	_, err = s.pool.AcquireSessions(context.Background())
	s.Require().NoError(err)

	dead, err := s.store.IsDead(context.Background(), "vc-b")
	s.Require().NoError(err)
	s.True(dead, "dead record must replace the stale alive record")

	dials := s.dialer.DialCalls["vc-b"]
	_, err = s.pool.AcquireSessions(context.Background())
	s.Require().NoError(err)
	s.Equal(dials, s.dialer.DialCalls["vc-b"], "dead-marked endpoint is skipped until the mark expires")
}

func (s *PoolSuite) TestDeadMarkedEndpointIsSkipped() {
	s.Require().NoError(s.store.Set(context.Background(), "vc-b", liveness.StatusDead, false))

	sessions, err := s.pool.AcquireSessions(context.Background())
	s.Require().NoError(err)

	s.Len(sessions, 1)
	s.NotContains(sessions, "vc-b")
	s.Zero(s.dialer.DialCalls["vc-b"], "dead-marked endpoints are not dialed")
}

func (s *PoolSuite) TestDeadMarkExpiryAllowsReconnect() {
	s.dialer.DialErr["vc-b"] = syscall.ECONNREFUSED
	_, err := s.pool.AcquireSessions(context.Background())
	s.Require().NoError(err)

	delete(s.dialer.DialErr, "vc-b")
	s.redis.FastForward(121 * time.Second)

	sessions, err := s.pool.AcquireSessions(context.Background())
	s.Require().NoError(err)
	s.Contains(sessions, "vc-b")
}

func (s *PoolSuite) TestAuthFailureAbortsAcquire() {
	s.dialer.DialErr["vc-a"] = vsphere.AuthFault(errors.New("incorrect user name or password"))

	_, err := s.pool.AcquireSessions(context.Background())

	s.Require().Error(err)
	s.ErrorIs(err, ErrAuthFailure)
	s.Equal(1, s.dialer.DialCalls["vc-a"], "auth failures are never retried")

	dead, derr := s.store.IsDead(context.Background(), "vc-a")
	s.Require().NoError(derr)
	s.False(dead, "auth failure is operator error, not endpoint death")
}

func (s *PoolSuite) TestStoreOutagePropagates() {
	s.redis.Close()

	_, err := s.pool.AcquireSessions(context.Background())

	s.Require().Error(err)
	s.ErrorIs(err, liveness.ErrUnavailable)
}

func (s *PoolSuite) TestCloseDisconnectsSessions() {
	_, err := s.pool.AcquireSessions(context.Background())
	s.Require().NoError(err)

	s.pool.Close(context.Background())

	s.True(s.dialer.Clients["vc-a"].Closed)
	s.True(s.dialer.Clients["vc-b"].Closed)
}

func TestPoolSuite(t *testing.T) {
	suite.Run(t, &PoolSuite{})
}

func TestReconnectReplacesStaleSession(t *testing.T) {
	mr := miniredis.RunT(t)
	store := liveness.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)

	dialer := vsphere.NewFakeDialer()
	first := vsphere.NewFakeClient("dc-a")
	dialer.Clients["vc-a"] = first

	settings := config.DefaultSettings()
	settings.RetryInterval = time.Millisecond

	endpoints, err := config.NewEndpoints(
		config.Endpoint{Name: "vc-a", Hostname: "vc-a.local", Port: 443, Username: "ro", Password: "x"},
	)
	require.NoError(t, err)
	pool := New(endpoints, dialer, store, settings)

	_, err = pool.AcquireSessions(context.Background())
	require.NoError(t, err)

	// Simulate the backend dropping the session, with a fresh client ready
	// for the next dial.
	first.ProbeErr = syscall.ECONNRESET
	second := vsphere.NewFakeClient("dc-a")
	dialer.Clients["vc-a"] = second

	sessions, err := pool.AcquireSessions(context.Background())
	require.NoError(t, err)

	assert.Same(t, second, sessions["vc-a"])
	assert.True(t, first.Closed, "stale session is disconnected once replaced")
}
