package chathub_test

import (
	"sync/atomic"

	"securechat/backend/internal/models"
)

type MockClient struct {
	id          string
	userID      string
	contactID   string
	RecvChannel chan models.Message
	closed      atomic.Bool
}

func newMockClient(id, userID, contactID string, buffer int) *MockClient {
	return &MockClient{
		id:          id,
		userID:      userID,
		contactID:   contactID,
		RecvChannel: make(chan models.Message, buffer),
	}
}

func (c *MockClient) GetID() string        { return c.id }
func (c *MockClient) GetUserID() string    { return c.userID }
func (c *MockClient) GetContactID() string { return c.contactID }

func (c *MockClient) GetSendChannel() chan<- models.Message {
	return c.RecvChannel
}

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	c.closed.Store(true)
}

func (c *MockClient) IsClosed() bool {
	return c.closed.Load()
}
