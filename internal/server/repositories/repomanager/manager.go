// Package repomanager vends repository implementations bound to a DBTX and
// exposes the schema migration hook. Services hold a manager plus the *sql.DB
// and rebind repositories inside transactions.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/postboard/internal/dbx"
	"github.com/dmitrijs2005/postboard/internal/server/repositories/comments"
	"github.com/dmitrijs2005/postboard/internal/server/repositories/posts"
	"github.com/dmitrijs2005/postboard/internal/server/repositories/users"
)

type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	Posts(db dbx.DBTX) posts.Repository
	Comments(db dbx.DBTX) comments.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
