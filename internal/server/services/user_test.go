package services

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/dmitrijs2005/postboard/internal/dbx"
	"github.com/dmitrijs2005/postboard/internal/server/config"
	"github.com/dmitrijs2005/postboard/internal/server/models"
	commentsrepo "github.com/dmitrijs2005/postboard/internal/server/repositories/comments"
	postsrepo "github.com/dmitrijs2005/postboard/internal/server/repositories/posts"
	"github.com/dmitrijs2005/postboard/internal/server/repositories/repomanager"
	usersrepo "github.com/dmitrijs2005/postboard/internal/server/repositories/users"
	"golang.org/x/crypto/bcrypt"
)

// --- helpers ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func newUserService(t *testing.T, db *sql.DB, rm repomanager.RepositoryManager) *UserService {
	t.Helper()
	cfg := &config.Config{
		SecretKey:             "k",
		TokenValidityDuration: time.Hour,
	}
	return NewUserService(db, rm, cfg)
}

type followEdge struct{ follower, followee string }

// fakeUsersRepo keeps users and follow edges in memory.
type fakeUsersRepo struct {
	users map[string]*models.User

	createOut *models.User
	createErr error
	getErr    error

	follows map[followEdge]bool
}

func newFakeUsersRepo(users ...*models.User) *fakeUsersRepo {
	f := &fakeUsersRepo{users: map[string]*models.User{}, follows: map[followEdge]bool{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createOut, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := f.users[id]
	return ok, nil
}

func (f *fakeUsersRepo) SetPrivacy(ctx context.Context, id string, isPrivate bool) error {
	u, ok := f.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.IsPrivate = isPrivate
	return nil
}

func (f *fakeUsersRepo) Refs(ctx context.Context, ids []string) ([]models.UserRef, error) {
	var refs []models.UserRef
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			refs = append(refs, models.UserRef{ID: u.ID, Username: u.Username, AvatarURL: u.AvatarURL})
		}
	}
	return refs, nil
}

func (f *fakeUsersRepo) Followers(ctx context.Context, id string) ([]models.UserRef, error) {
	refs := []models.UserRef{}
	for e := range f.follows {
		if e.followee == id {
			if u, ok := f.users[e.follower]; ok {
				refs = append(refs, models.UserRef{ID: u.ID, Username: u.Username})
			}
		}
	}
	return refs, nil
}

func (f *fakeUsersRepo) Following(ctx context.Context, id string) ([]models.UserRef, error) {
	refs := []models.UserRef{}
	for e := range f.follows {
		if e.follower == id {
			if u, ok := f.users[e.followee]; ok {
				refs = append(refs, models.UserRef{ID: u.ID, Username: u.Username})
			}
		}
	}
	return refs, nil
}

func (f *fakeUsersRepo) FollowerCount(ctx context.Context, id string) (int, error) {
	refs, _ := f.Followers(ctx, id)
	return len(refs), nil
}

func (f *fakeUsersRepo) FollowingCount(ctx context.Context, id string) (int, error) {
	refs, _ := f.Following(ctx, id)
	return len(refs), nil
}

func (f *fakeUsersRepo) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	return f.follows[followEdge{followerID, followeeID}], nil
}

func (f *fakeUsersRepo) AddFollow(ctx context.Context, followerID, followeeID string) error {
	f.follows[followEdge{followerID, followeeID}] = true
	return nil
}

func (f *fakeUsersRepo) RemoveFollow(ctx context.Context, followerID, followeeID string) error {
	delete(f.follows, followEdge{followerID, followeeID})
	return nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	p *fakePostsRepo
	c *fakeCommentsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.u }
func (m *fakeRepoManager) Posts(db dbx.DBTX) postsrepo.Repository       { return m.p }
func (m *fakeRepoManager) Comments(db dbx.DBTX) commentsrepo.Repository { return m.c }

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(h)
}

// --- register / login ---

func TestRegister_SuccessAndDuplicate(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rmOK := &fakeRepoManager{u: newFakeUsersRepo()}
	rmOK.u.createOut = &models.User{ID: "42", Username: "alice", AvatarURL: DefaultAvatarPath}
	sOK := newUserService(t, db, rmOK)
	u, token, err := sOK.Register(context.Background(), RegisterParams{Username: "alice", Email: "a@x.io", Password: "s"})
	if err != nil || u.ID != "42" || token == "" {
		t.Fatalf("Register ok: got (%v, %q, %v)", u, token, err)
	}

	rmDup := &fakeRepoManager{u: newFakeUsersRepo()}
	rmDup.u.createErr = common.ErrorAlreadyExists
	sDup := newUserService(t, db, rmDup)
	_, _, err = sDup.Register(context.Background(), RegisterParams{Username: "alice", Email: "a@x.io", Password: "s"})
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("duplicate: want ErrorAlreadyExists, got %v", err)
	}

	rmErr := &fakeRepoManager{u: newFakeUsersRepo()}
	rmErr.u.createErr = errBoom{}
	sErr := newUserService(t, db, rmErr)
	_, _, err = sErr.Register(context.Background(), RegisterParams{Username: "bob", Email: "b@x.io", Password: "s"})
	if err == nil || !regexp.MustCompile(`error creating user: .*boom`).MatchString(err.Error()) {
		t.Fatalf("Register expected wrapped error, got %v", err)
	}
}

func TestRegister_DefaultAvatar(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: newFakeUsersRepo()}
	rm.u.createOut = &models.User{ID: "1"}
	s := newUserService(t, db, rm)

	if _, _, err := s.Register(context.Background(), RegisterParams{Username: "a", Email: "a@x.io", Password: "p"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
}

func TestLogin_Flows(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	hash := mustHash(t, "right")
	alice := &models.User{ID: "u1", Username: "alice", Email: "a@x.io", PasswordHash: hash}

	// unknown email → invalid credentials
	sNF := newUserService(t, db, &fakeRepoManager{u: newFakeUsersRepo()})
	if _, _, err := sNF.Login(context.Background(), "ghost@x.io", "x"); !errors.Is(err, common.ErrorInvalidCredentials) {
		t.Fatalf("notfound → invalid credentials, got %v", err)
	}

	// repo failure → internal
	rmIE := &fakeRepoManager{u: newFakeUsersRepo()}
	rmIE.u.getErr = errBoom{}
	sIE := newUserService(t, db, rmIE)
	if _, _, err := sIE.Login(context.Background(), "a@x.io", "x"); !errors.Is(err, common.ErrorInternal) {
		t.Fatalf("internal → ErrorInternal, got %v", err)
	}

	// wrong password → invalid credentials
	sWP := newUserService(t, db, &fakeRepoManager{u: newFakeUsersRepo(alice)})
	if _, _, err := sWP.Login(context.Background(), "a@x.io", "wrong"); !errors.Is(err, common.ErrorInvalidCredentials) {
		t.Fatalf("wrong password → invalid credentials, got %v", err)
	}

	sOK := newUserService(t, db, &fakeRepoManager{u: newFakeUsersRepo(alice)})
	u, token, err := sOK.Login(context.Background(), "a@x.io", "right")
	if err != nil || u.ID != "u1" || token == "" {
		t.Fatalf("Login success: user=%+v token=%q err=%v", u, token, err)
	}
}

// --- visibility gate ---

func TestVisibility(t *testing.T) {
	owner := &models.User{ID: "owner"}
	followers := []models.UserRef{{ID: "fan"}}

	tests := []struct {
		name            string
		private         bool
		requesterID     string
		wantFull        bool
		wantIsFollowing bool
	}{
		{"public anonymous", false, "", true, false},
		{"public stranger", false, "stranger", true, false},
		{"public follower", false, "fan", true, true},
		{"private anonymous", true, "", false, false},
		{"private stranger", true, "stranger", false, false},
		{"private follower", true, "fan", true, true},
		{"private owner", true, "owner", true, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			owner.IsPrivate = tc.private
			full, isFollowing := visibility(owner, followers, tc.requesterID)
			if full != tc.wantFull || isFollowing != tc.wantIsFollowing {
				t.Fatalf("visibility = (%v, %v), want (%v, %v)", full, isFollowing, tc.wantFull, tc.wantIsFollowing)
			}
		})
	}
}

func TestProfile_GatedAndFull(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	bob := &models.User{ID: "bob", Username: "bob", Bio: "secret bio", IsPrivate: true}
	fan := &models.User{ID: "fan", Username: "fan"}
	rm := &fakeRepoManager{u: newFakeUsersRepo(bob, fan)}
	rm.u.follows[followEdge{"fan", "bob"}] = true
	s := newUserService(t, db, rm)

	gated, err := s.Profile(context.Background(), "bob", "stranger")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if gated.CanViewFull || gated.User.Bio != "" || gated.User.Followers != nil {
		t.Fatalf("gated view leaked data: %+v", gated)
	}
	if gated.User.FollowersCount != 1 {
		t.Fatalf("gated view lost counts: %+v", gated.User)
	}

	full, err := s.Profile(context.Background(), "bob", "fan")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if !full.CanViewFull || !full.IsFollowing || full.User.Bio != "secret bio" || len(full.User.Followers) != 1 {
		t.Fatalf("follower view incomplete: %+v", full)
	}

	if _, err := s.Profile(context.Background(), "ghost", "fan"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("unknown profile: want ErrorNotFound, got %v", err)
	}
}

// --- follow graph ---

func TestFollow_SelfAndUnknown(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: newFakeUsersRepo(&models.User{ID: "a", Username: "a"})}
	s := newUserService(t, db, rm)

	if _, err := s.Follow(context.Background(), "a", "a"); !errors.Is(err, common.ErrorInvalidArgument) {
		t.Fatalf("self-follow: want ErrorInvalidArgument, got %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectRollback()
	if _, err := s.Follow(context.Background(), "a", "ghost"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("unknown target: want ErrorNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestFollow_IdempotentAndUnfollow(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	alice := &models.User{ID: "alice", Username: "alice"}
	bob := &models.User{ID: "bob", Username: "bob"}
	rm := &fakeRepoManager{u: newFakeUsersRepo(alice, bob)}
	s := newUserService(t, db, rm)

	mock.ExpectBegin()
	mock.ExpectCommit()
	r1, err := s.Follow(context.Background(), "alice", "bob")
	if err != nil {
		t.Fatalf("Follow: %v", err)
	}
	if r1.Message != "Successfully followed bob!" || r1.UserFollowersCount != 1 || r1.CurrentUserFollowingCnt != 1 || !r1.IsFollowing {
		t.Fatalf("follow result: %+v", r1)
	}

	// double follow does not duplicate
	mock.ExpectBegin()
	mock.ExpectCommit()
	r2, err := s.Follow(context.Background(), "alice", "bob")
	if err != nil || r2.UserFollowersCount != 1 {
		t.Fatalf("double follow: result=%+v err=%v", r2, err)
	}

	mock.ExpectBegin()
	mock.ExpectCommit()
	r3, err := s.Unfollow(context.Background(), "alice", "bob")
	if err != nil {
		t.Fatalf("Unfollow: %v", err)
	}
	if r3.Message != "Successfully unfollowed bob." || r3.UserFollowersCount != 0 || r3.IsFollowing {
		t.Fatalf("unfollow result: %+v", r3)
	}

	// unfollow of an absent edge still succeeds
	mock.ExpectBegin()
	mock.ExpectCommit()
	if _, err := s.Unfollow(context.Background(), "alice", "bob"); err != nil {
		t.Fatalf("repeat unfollow: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestSetPrivacy(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	bob := &models.User{ID: "bob"}
	rm := &fakeRepoManager{u: newFakeUsersRepo(bob)}
	s := newUserService(t, db, rm)

	if err := s.SetPrivacy(context.Background(), "bob", true); err != nil {
		t.Fatalf("SetPrivacy: %v", err)
	}
	if !bob.IsPrivate {
		t.Fatalf("privacy flag not set")
	}
}
