// Package relations derives friend lists from the persisted friend requests.
package relations

import (
	"slices"

	"securechat/backend/internal/models"
)

// Source provides a consistent snapshot of the whole record.
type Source interface {
	Load() (*models.Database, error)
}

// FriendPolicy adjusts the friend IDs derived from accepted requests.
// It receives the snapshot the IDs were derived from and returns the final list.
type FriendPolicy func(db *models.Database, userID string, friendIDs []string) []string

// AdminIsUniversalFriend makes the administrator (the first ADMIN user in the
// collection) a friend of every other user, without any accepted request on
// record. The administrator's own list is left as derived.
func AdminIsUniversalFriend(db *models.Database, userID string, friendIDs []string) []string {
	admin, ok := db.Admin()
	if !ok || admin.ID == userID || slices.Contains(friendIDs, admin.ID) {
		return friendIDs
	}
	return append(friendIDs, admin.ID)
}

// NoImplicitFriends leaves the derived list unchanged.
func NoImplicitFriends(_ *models.Database, _ string, friendIDs []string) []string {
	return friendIDs
}

// Resolver computes friend lists.
type Resolver struct {
	Source Source
	Policy FriendPolicy
}

// NewResolver creates a resolver with the AdminIsUniversalFriend policy.
func NewResolver(src Source) *Resolver {
	return &Resolver{Source: src, Policy: AdminIsUniversalFriend}
}

// GetFriends returns the users related to userID through an accepted request,
// plus whatever the policy adds, in user-collection order.
func (r *Resolver) GetFriends(userID string) ([]models.User, error) {
	db, err := r.Source.Load()
	if err != nil {
		return nil, err
	}
	ids := r.friendIDs(db, userID)

	out := make([]models.User, 0, len(ids))
	for _, u := range db.Users {
		if slices.Contains(ids, u.ID) {
			out = append(out, u)
		}
	}
	return out, nil
}

// AreFriends reports whether contactID is in userID's resolved friend list.
// Users that no longer exist are never friends.
func (r *Resolver) AreFriends(userID, contactID string) (bool, error) {
	friends, err := r.GetFriends(userID)
	if err != nil {
		return false, err
	}
	return slices.ContainsFunc(friends, func(u models.User) bool { return u.ID == contactID }), nil
}

func (r *Resolver) friendIDs(db *models.Database, userID string) []string {
	var ids []string
	for _, req := range db.FriendRequests {
		if req.Status == models.FriendRequestAccepted && req.Involves(userID) {
			ids = append(ids, req.Other(userID))
		}
	}
	policy := r.Policy
	if policy == nil {
		policy = NoImplicitFriends
	}
	return policy(db, userID, ids)
}
