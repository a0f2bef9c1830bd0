package chathub

import (
	"context"
	"log"
	"time"

	"securechat/backend/internal/models"
)

// maxStalledPolls is how many consecutive polls a client may spend with a
// full buffer, unable to take a single pending message, before it is dropped.
const maxStalledPolls = 5

// ConversationStore is the part of the persisted store the hub polls.
type ConversationStore interface {
	GetMessages(userID, contactID string) ([]models.Message, error)
	AddMessage(msg models.Message) error
}

// ManagerService delivers conversations to connected clients by re-reading the
// store on a fixed interval. There is no push path: a message written by any
// process reaches watchers on their next poll.
type ManagerService struct {
	Clients map[string]Client

	// Channels
	IncomingCh   chan models.Message
	RegisterCh   chan Client
	UnregisterCh chan Client

	Storage      ConversationStore
	PollInterval time.Duration

	// seen holds, per client ID, the message IDs already delivered.
	seen map[string]map[string]struct{}
	// stalls counts, per client ID, consecutive polls that delivered nothing
	// because the buffer was full.
	stalls map[string]int
	done   chan struct{}
}

// NewManagerService creates a hub polling s every interval.
func NewManagerService(s ConversationStore, interval time.Duration) *ManagerService {
	if interval <= 0 {
		interval = time.Second
	}
	return &ManagerService{
		Clients:      make(map[string]Client),
		IncomingCh:   make(chan models.Message),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		Storage:      s,
		PollInterval: interval,
		seen:         make(map[string]map[string]struct{}),
		stalls:       make(map[string]int),
		done:         make(chan struct{}),
	}
}

// Done is closed once Run has returned.
func (m *ManagerService) Done() <-chan struct{} {
	return m.done
}

// Register hands c to the hub. It returns false if the hub has stopped.
func (m *ManagerService) Register(c Client) bool {
	select {
	case m.RegisterCh <- c:
		return true
	case <-m.done:
		return false
	}
}

// Unregister asks the hub to drop c. Safe to call after the hub has stopped.
func (m *ManagerService) Unregister(c Client) {
	select {
	case m.UnregisterCh <- c:
	case <-m.done:
	}
}

// Submit hands a message written by a client to the hub for persistence.
func (m *ManagerService) Submit(msg models.Message) bool {
	select {
	case m.IncomingCh <- msg:
		return true
	case <-m.done:
		return false
	}
}

// Run is the hub loop. It returns when ctx is cancelled, closing every client.
func (m *ManagerService) Run(ctx context.Context) {
	ticker := time.NewTicker(m.PollInterval)
	defer func() {
		ticker.Stop()
		for _, c := range m.Clients {
			m.remove(c)
		}
		close(m.done)
	}()

	log.Printf("INFO: Chat hub started (poll interval %s).", m.PollInterval)

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-m.RegisterCh:
			if old, ok := m.Clients[c.GetID()]; ok {
				m.remove(old)
			}
			m.Clients[c.GetID()] = c
			m.seen[c.GetID()] = make(map[string]struct{})
			m.stalls[c.GetID()] = 0
			m.poll(c)

		case c := <-m.UnregisterCh:
			m.remove(c)

		case msg := <-m.IncomingCh:
			m.handleIncomingMessage(msg)

		case <-ticker.C:
			for _, c := range m.Clients {
				m.poll(c)
			}
		}
	}
}

// handleIncomingMessage saves a message written by a client. Conversations
// with the AI are written only by the AI endpoint, so watchers of them are
// read-only.
func (m *ManagerService) handleIncomingMessage(msg models.Message) {
	if msg.SenderID == models.AIParticipantID || msg.ReceiverID == models.AIParticipantID {
		log.Printf("WARNING: Ignoring message from %s into the AI conversation.", msg.SenderID)
		return
	}
	if err := m.Storage.AddMessage(msg); err != nil {
		log.Printf("ERROR: Failed to save message from %s to %s: %v", msg.SenderID, msg.ReceiverID, err)
		return
	}
	// Watchers of this conversation see the write now instead of on the next tick.
	for _, c := range m.Clients {
		if msg.Between(c.GetUserID(), c.GetContactID()) {
			m.poll(c)
		}
	}
}

// poll re-reads c's conversation and sends the messages it has not seen yet,
// oldest first. When c's buffer fills, the rest stays unseen and goes out on
// a later poll. A client that cannot take anything for maxStalledPolls polls
// in a row is dropped.
func (m *ManagerService) poll(c Client) {
	seen, ok := m.seen[c.GetID()]
	if !ok {
		return
	}
	msgs, err := m.Storage.GetMessages(c.GetUserID(), c.GetContactID())
	if err != nil {
		log.Printf("ERROR: Failed to poll conversation %s/%s: %v", c.GetUserID(), c.GetContactID(), err)
		return
	}

	sent := 0
	for _, msg := range msgs {
		if _, ok := seen[msg.ID]; ok {
			continue
		}
		select {
		case c.GetSendChannel() <- msg:
			seen[msg.ID] = struct{}{}
			sent++
			continue
		default:
		}

		if sent > 0 {
			m.stalls[c.GetID()] = 0
			return
		}
		m.stalls[c.GetID()]++
		if m.stalls[c.GetID()] >= maxStalledPolls {
			log.Printf("WARNING: Client %s is too slow, dropping connection.", c.GetID())
			m.remove(c)
		}
		return
	}
	m.stalls[c.GetID()] = 0
}

func (m *ManagerService) remove(c Client) {
	if _, ok := m.Clients[c.GetID()]; !ok {
		return
	}
	delete(m.Clients, c.GetID())
	delete(m.seen, c.GetID())
	delete(m.stalls, c.GetID())
	c.Close()
}
