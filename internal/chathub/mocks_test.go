package chathub_test

import (
	"github.com/stretchr/testify/mock"

	"securechat/backend/internal/models"
)

// MockStorage is a testify mock of chathub.ConversationStore.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetMessages(userID, contactID string) ([]models.Message, error) {
	args := m.Called(userID, contactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockStorage) AddMessage(msg models.Message) error {
	args := m.Called(msg)
	return args.Error(0)
}
