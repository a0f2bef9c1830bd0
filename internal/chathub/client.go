package chathub

import "securechat/backend/internal/models"

// Client is the interface for a connection watching one conversation.
// It abstracts the underlying communication mechanism, allowing the hub to manage
// different client types uniformly.
type Client interface {
	// GetID returns an identifier unique to this connection.
	GetID() string
	// GetUserID returns the user who owns the connection.
	GetUserID() string
	// GetContactID returns the other participant of the watched conversation
	// (a user ID or models.AIParticipantID).
	GetContactID() string

	// GetSendChannel returns the channel to which the ManagerService (hub) sends
	// messages intended for this specific client. It is a send-only channel.
	GetSendChannel() chan<- models.Message

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts down the client's connection and associated channels.
	// It is called by the hub exactly once, after the client is removed.
	Close()
}
