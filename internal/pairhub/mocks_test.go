package pairhub_test

import (
	"sync"
	"time"

	"vidgogo/backend/internal/config"
	"vidgogo/backend/internal/models"
	"vidgogo/backend/internal/pairhub"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a testify/mock implementation of storage.Storage.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) SaveSession(sess *models.Session) error {
	args := m.Called(sess)
	return args.Error(0)
}

func (m *MockStorage) MarkSessionActive(sessionID string) error {
	args := m.Called(sessionID)
	return args.Error(0)
}

func (m *MockStorage) CloseSession(sessionID, reason string) error {
	args := m.Called(sessionID, reason)
	return args.Error(0)
}

func (m *MockStorage) GetSessionByID(sessionID string) (*models.Session, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockStorage) GetRecentSessions(limit int) ([]models.Session, error) {
	args := m.Called(limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Session), args.Error(1)
}

func (m *MockStorage) IsUserBanned(anonID string) (bool, error) {
	args := m.Called(anonID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) BanUser(anonID string, ttl time.Duration) error {
	args := m.Called(anonID, ttl)
	return args.Error(0)
}

func (m *MockStorage) UnbanUser(anonID string) error {
	args := m.Called(anonID)
	return args.Error(0)
}

func (m *MockStorage) AddUserToSearchQueue(userID string) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockStorage) RemoveUserFromSearchQueue(userID string) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockStorage) GetSearchingUsers() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStorage) PublishEvent(event, sessionID string) error {
	args := m.Called(event, sessionID)
	return args.Error(0)
}

// newQuietStorage returns a MockStorage that tolerates every call, for
// tests that only care about hub behavior. Individual tests can still
// AssertCalled on it.
func newQuietStorage() *MockStorage {
	s := new(MockStorage)
	s.On("SaveSession", mock.Anything).Return(nil).Maybe()
	s.On("MarkSessionActive", mock.Anything).Return(nil).Maybe()
	s.On("CloseSession", mock.Anything, mock.Anything).Return(nil).Maybe()
	s.On("AddUserToSearchQueue", mock.Anything).Return(nil).Maybe()
	s.On("RemoveUserFromSearchQueue", mock.Anything).Return(nil).Maybe()
	s.On("PublishEvent", mock.Anything, mock.Anything).Return(nil).Maybe()
	return s
}

// MockClient is a test double for the pairhub.Client interface. Frames
// the hub sends land in RecvChannel.
type MockClient struct {
	userID      string
	RecvChannel chan models.Frame
}

func newMockClient(userID string) *MockClient {
	return &MockClient{
		userID:      userID,
		RecvChannel: make(chan models.Frame, 64), // buffered to prevent blocking in tests
	}
}

func (c *MockClient) GetUserID() string                   { return c.userID }
func (c *MockClient) GetSendChannel() chan<- models.Frame { return c.RecvChannel }
func (c *MockClient) Run()                                {}
func (c *MockClient) Close()                              {}

// DrainFrames returns everything received so far.
func (c *MockClient) DrainFrames() []models.Frame {
	var frames []models.Frame
	for {
		select {
		case f := <-c.RecvChannel:
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

// FramesOfType filters received frames by type.
func (c *MockClient) FramesOfType(frameType string) []models.Frame {
	var out []models.Frame
	for _, f := range c.DrainFrames() {
		if f.Type == frameType {
			out = append(out, f)
		}
	}
	return out
}

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// mockAlerter records alerts raised by the session manager.
type mockAlerter struct {
	mu     sync.Mutex
	alerts []string
}

func (a *mockAlerter) Alertf(format string, args ...interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, format)
}

func (a *mockAlerter) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.alerts)
}

// testConfig returns fast tunables for hub tests.
func testConfig() *config.Config {
	return &config.Config{
		MatchFallbackAfter: 5 * time.Second,
		NegotiationTimeout: time.Minute,
		ChatRateLimit:      5,
		ChatRateWindow:     2 * time.Second,
	}
}

// createTestHub builds a fully wired hub without running its dispatch
// loop; tests drive the services directly.
func createTestHub(s *MockStorage) *pairhub.ManagerService {
	return pairhub.NewManagerService(s, testConfig())
}

// connectClient registers a mock client straight into the registry,
// bypassing the hub channels.
func connectClient(hub *pairhub.ManagerService, id string) *MockClient {
	c := newMockClient(id)
	hub.Registry.Register(id, c)
	return c
}
