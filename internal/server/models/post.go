package models

import "time"

// Post is the persisted post record. Vote sets and attachments are stored in
// side tables keyed by post id and composed into PostView on read.
type Post struct {
	ID              string
	AuthorID        string
	Title           string
	ContentMarkdown string
	Tags            []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Attachment describes one uploaded file belonging to a post. Path is the
// public path the file is served from, not a filesystem location.
type Attachment struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	Mimetype     string `json:"mimetype"`
	Size         int64  `json:"size"`
	Path         string `json:"path"`
}

// VoteSets holds the two mutually exclusive voter id sets of a post.
// A user id appears in at most one of the two.
type VoteSets struct {
	Upvotes   []string
	Downvotes []string
}

// Score is the presentation-level vote count. It is computed on demand and
// never stored.
func (v VoteSets) Score() int {
	return len(v.Upvotes) - len(v.Downvotes)
}

// PostView is a post composed with its author reference, vote sets and
// attachments, as returned by the API.
type PostView struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	ContentMarkdown string       `json:"contentMarkdown"`
	Author          UserRef      `json:"author"`
	Tags            []string     `json:"tags"`
	Upvotes         []string     `json:"upvotes"`
	Downvotes       []string     `json:"downvotes"`
	VoteCount       int          `json:"voteCount"`
	Attachments     []Attachment `json:"attachments"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}
