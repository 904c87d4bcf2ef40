// Package models holds the persisted record types and the projections the
// API returns. Stored secrets (password hashes) never appear in projections.
package models

import "time"

// User is the persisted identity record. Follower/following sets live in the
// follows table and are loaded on demand, never embedded here.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	AvatarURL    string
	Bio          string
	IsPrivate    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRef is the minimal projection used wherever another record references
// a user (post author, comment author, follower lists).
type UserRef struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl"`
}

// Ref projects a User down to its reference form.
func (u *User) Ref() UserRef {
	return UserRef{ID: u.ID, Username: u.Username, AvatarURL: u.AvatarURL}
}

// AccountView is the authenticated user's own view of their record: full
// detail, no password hash.
type AccountView struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatarUrl"`
	Bio       string    `json:"bio"`
	IsPrivate bool      `json:"isPrivate"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Account projects a User for return to its owner.
func (u *User) Account() *AccountView {
	return &AccountView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
		Bio:       u.Bio,
		IsPrivate: u.IsPrivate,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// ProfileUser is another user's profile as seen by a requester after the
// visibility gate ran. When the gate denies full view, Bio is empty and the
// Followers/Following member lists are nil; the counts remain.
type ProfileUser struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	AvatarURL      string    `json:"avatarUrl"`
	Bio            string    `json:"bio"`
	IsPrivate      bool      `json:"isPrivate"`
	FollowersCount int       `json:"followersCount"`
	FollowingCount int       `json:"followingCount"`
	Followers      []UserRef `json:"followers,omitempty"`
	Following      []UserRef `json:"following,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ProfileView is the GET /users/:id response body.
type ProfileView struct {
	User        ProfileUser `json:"user"`
	CanViewFull bool        `json:"canViewFull"`
	IsFollowing bool        `json:"isFollowing"`
}

// FollowResult reports the outcome of a follow/unfollow mutation.
type FollowResult struct {
	Message                 string `json:"message"`
	UserFollowersCount      int    `json:"userFollowersCount"`
	CurrentUserFollowingCnt int    `json:"currentUserFollowingCount"`
	IsFollowing             bool   `json:"isFollowing"`
}
