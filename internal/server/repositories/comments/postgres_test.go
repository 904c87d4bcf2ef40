package comments

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/dmitrijs2005/postboard/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_TopLevelAndReply(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)INSERT\s+INTO\s+comments\s*\(post_id,\s*author_id,\s*content_markdown,\s*parent_comment_id\)`

	now := time.Now()
	mock.ExpectQuery(q).
		WithArgs("p-1", "u-1", "hi", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("c-1", now, now))

	got, err := repo.Create(context.Background(), &models.Comment{PostID: "p-1", AuthorID: "u-1", ContentMarkdown: "hi"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != "c-1" || got.ParentCommentID != nil {
		t.Fatalf("unexpected comment: %+v", got)
	}

	parent := "c-1"
	mock.ExpectQuery(q).
		WithArgs("p-1", "u-1", "reply", &parent).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("c-2", now, now))

	reply, err := repo.Create(context.Background(), &models.Comment{
		PostID: "p-1", AuthorID: "u-1", ContentMarkdown: "reply", ParentCommentID: &parent})
	if err != nil {
		t.Fatalf("Create reply error: %v", err)
	}
	if reply.ParentCommentID == nil || *reply.ParentCommentID != "c-1" {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}

func TestCreate_MalformedParentID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+comments`).
		WillReturnError(&pgconn.PgError{Code: "22P02"})

	parent := "not-a-uuid"
	_, err := repo.Create(context.Background(), &models.Comment{
		PostID: "p-1", AuthorID: "u-1", ContentMarkdown: "hi", ParentCommentID: &parent})
	if !errors.Is(err, common.ErrorInvalidArgument) {
		t.Fatalf("want ErrorInvalidArgument, got %v", err)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+comments\s+WHERE\s+id\s*=\s*\$1::uuid`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), "ghost"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestListForPost_OldestFirst(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	parent := "c-1"
	rows := sqlmock.NewRows([]string{"id", "post_id", "author_id", "content_markdown", "parent_comment_id", "created_at", "updated_at"}).
		AddRow("c-1", "p-1", "u-1", "one", nil, now, now).
		AddRow("c-2", "p-1", "u-2", "two", &parent, now, now)
	mock.ExpectQuery(`(?s)FROM\s+comments\s+WHERE\s+post_id\s*=\s*\$1::uuid\s+ORDER\s+BY\s+created_at`).
		WithArgs("p-1").
		WillReturnRows(rows)

	got, err := repo.ListForPost(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("ListForPost error: %v", err)
	}
	if len(got) != 2 || got[1].ParentCommentID == nil || *got[1].ParentCommentID != "c-1" {
		t.Fatalf("unexpected comments: %+v", got)
	}
}

func TestDelete_MissingAndPresent(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `DELETE\s+FROM\s+comments\s+WHERE\s+id\s*=\s*\$1::uuid`

	mock.ExpectExec(q).WithArgs("ghost").WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.Delete(context.Background(), "ghost"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}

	mock.ExpectExec(q).WithArgs("c-1").WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.Delete(context.Background(), "c-1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
}
