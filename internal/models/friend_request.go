package models

// FriendRequestStatus is the lifecycle state of a FriendRequest.
type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
	FriendRequestRejected FriendRequestStatus = "rejected"
)

// FriendRequest is a directed proposal of relationship between two users.
// Requests only ever move from pending to accepted.
type FriendRequest struct {
	ID         string              `json:"id"`
	FromUserID string              `json:"fromUserId"`
	ToUserID   string              `json:"toUserId"`
	Status     FriendRequestStatus `json:"status"`
}

// Involves reports whether userID is either party of the request.
func (r FriendRequest) Involves(userID string) bool {
	return r.FromUserID == userID || r.ToUserID == userID
}

// Other returns the party of the request that is not userID.
func (r FriendRequest) Other(userID string) string {
	if r.FromUserID == userID {
		return r.ToUserID
	}
	return r.FromUserID
}
