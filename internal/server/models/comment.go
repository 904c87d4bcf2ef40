package models

import "time"

// Comment supports one level of threading via ParentCommentID. The parent is
// not validated to belong to the same post, and deleting a parent leaves its
// replies in place with a dangling reference.
type Comment struct {
	ID              string
	PostID          string
	AuthorID        string
	ContentMarkdown string
	ParentCommentID *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CommentView is a comment with its author populated.
type CommentView struct {
	ID              string    `json:"id"`
	PostID          string    `json:"postId"`
	Author          UserRef   `json:"author"`
	ContentMarkdown string    `json:"contentMarkdown"`
	ParentComment   *string   `json:"parentComment"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
