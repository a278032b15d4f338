package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/go-playground/assert/v2"
)


// a `FeedApi` with scripted results. Unset calls return nothing.
type testFeedApi struct {
	stateLock sync.Mutex
	calls     []string

	listStatuses  func() ([]*StatusEntry, error)
	getStatus     func(statusId string) (*StatusEntry, error)
	createStatus  func(content string) (*StatusEntry, error)
	deleteStatus  func(statusId string) error
	addComment    func(statusId string, content string) (*StatusEntry, error)
	removeComment func(commentId string, statusId string) (*StatusEntry, error)
	like          func(statusId string) (*StatusEntry, error)
	unlike        func(statusId string) (*StatusEntry, error)
	getProfile    func() (*Profile, error)
	listMembers   func(year string) ([]*Member, error)
}

func (self *testFeedApi) call(name string) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	self.calls = append(self.calls, name)
}

func (self *testFeedApi) Calls() []string {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return append([]string{}, self.calls...)
}

func (self *testFeedApi) SignIn(ctx context.Context, email string, password string) (*SignInResult, error) {
	self.call("signin")
	return nil, ErrNoToken
}

func (self *testFeedApi) ListStatuses(ctx context.Context) ([]*StatusEntry, error) {
	self.call("list")
	if self.listStatuses == nil {
		return []*StatusEntry{}, nil
	}
	return self.listStatuses()
}

func (self *testFeedApi) GetStatus(ctx context.Context, statusId string) (*StatusEntry, error) {
	self.call("get " + statusId)
	if self.getStatus == nil {
		return nil, nil
	}
	return self.getStatus(statusId)
}

func (self *testFeedApi) CreateStatus(ctx context.Context, content string) (*StatusEntry, error) {
	self.call("create")
	if self.createStatus == nil {
		return nil, nil
	}
	return self.createStatus(content)
}

func (self *testFeedApi) DeleteStatus(ctx context.Context, statusId string) error {
	self.call("delete " + statusId)
	if self.deleteStatus == nil {
		return nil
	}
	return self.deleteStatus(statusId)
}

func (self *testFeedApi) AddComment(ctx context.Context, statusId string, content string) (*StatusEntry, error) {
	self.call("comment " + statusId)
	if self.addComment == nil {
		return nil, nil
	}
	return self.addComment(statusId, content)
}

func (self *testFeedApi) RemoveComment(ctx context.Context, commentId string, statusId string) (*StatusEntry, error) {
	self.call("uncomment " + commentId)
	if self.removeComment == nil {
		return nil, nil
	}
	return self.removeComment(commentId, statusId)
}

func (self *testFeedApi) Like(ctx context.Context, statusId string) (*StatusEntry, error) {
	self.call("like " + statusId)
	if self.like == nil {
		return nil, nil
	}
	return self.like(statusId)
}

func (self *testFeedApi) Unlike(ctx context.Context, statusId string) (*StatusEntry, error) {
	self.call("unlike " + statusId)
	if self.unlike == nil {
		return nil, nil
	}
	return self.unlike(statusId)
}

func (self *testFeedApi) GetProfile(ctx context.Context) (*Profile, error) {
	self.call("profile")
	if self.getProfile == nil {
		return nil, nil
	}
	return self.getProfile()
}

func (self *testFeedApi) ListMembers(ctx context.Context, year string) ([]*Member, error) {
	self.call("members " + year)
	if self.listMembers == nil {
		return []*Member{}, nil
	}
	return self.listMembers(year)
}


func listOf(records ...Record) func() ([]*StatusEntry, error) {
	return func() ([]*StatusEntry, error) {
		statuses := []*StatusEntry{}
		for _, record := range records {
			statuses = append(statuses, NormalizeStatus(record))
		}
		return statuses, nil
	}
}

func newTestFeed(t *testing.T, api *testFeedApi, identity Identity) *Feed {
	feed := NewFeedWithDefaults(context.Background(), api)
	t.Cleanup(feed.Close)
	feed.IdentityResolver().Merge(identity)
	_, err := feed.RefreshSync(context.Background())
	assert.Equal(t, err, nil)
	return feed
}

func mustStatus(t *testing.T, feed *Feed, statusId string) *StatusEntry {
	status, ok := feed.Status(statusId)
	assert.Equal(t, ok, true)
	return status
}


func TestFeedUnlikeFailureRestores(t *testing.T) {
	api := &testFeedApi{
		listStatuses: listOf(Record{
			"_id":  "s1",
			"like": []any{"u1", Record{"email": "b@x.com"}},
		}),
		unlike: func(statusId string) (*StatusEntry, error) {
			return nil, &ApiError{StatusCode: 500, Message: "network down"}
		},
	}
	feed := newTestFeed(t, api, Identity{Email: "b@x.com"})

	status := mustStatus(t, feed, "s1")
	assert.Equal(t, status.LikeCount, 2)
	assert.Equal(t, status.IsLiked, true)

	_, err := feed.ToggleLikeSync(context.Background(), "s1")
	var mutationErr *MutationError
	assert.Equal(t, errors.As(err, &mutationErr), true)
	assert.Equal(t, mutationErr.Op, MutationOpUnlike)
	assert.Equal(t, mutationErr.StatusId, "s1")
	assert.Equal(t, err.Error(), "Could not unlike the post: network down")

	status = mustStatus(t, feed, "s1")
	assert.Equal(t, status.LikeCount, 2)
	assert.Equal(t, status.IsLiked, true)
	members, _ := LikeMembers(status.Payload)
	assert.Equal(t, members, []any{"u1", Record{"email": "b@x.com"}})
	assert.Equal(t, feed.IsLikePending("s1"), false)
}

func TestFeedToggleSymmetry(t *testing.T) {
	api := &testFeedApi{
		listStatuses: listOf(Record{"_id": "s1", "like": []any{"u1"}}),
		like: func(statusId string) (*StatusEntry, error) {
			return NormalizeStatus(Record{"_id": "s1", "like": []any{"u1", "u2"}}), nil
		},
		unlike: func(statusId string) (*StatusEntry, error) {
			return NormalizeStatus(Record{"_id": "s1", "like": []any{"u1"}}), nil
		},
	}
	feed := newTestFeed(t, api, Identity{UserId: "u2"})
	before := mustStatus(t, feed, "s1")

	status, err := feed.ToggleLikeSync(context.Background(), "s1")
	assert.Equal(t, err, nil)
	assert.Equal(t, status.LikeCount, 2)
	assert.Equal(t, status.IsLiked, true)

	status, err = feed.ToggleLikeSync(context.Background(), "s1")
	assert.Equal(t, err, nil)
	assert.Equal(t, status.LikeCount, before.LikeCount)
	assert.Equal(t, status.IsLiked, before.IsLiked)

	assert.Equal(t, api.Calls(), []string{"list", "like s1", "unlike s1"})
}

func TestFeedToggleWhilePending(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	api := &testFeedApi{
		listStatuses: listOf(Record{"_id": "s1", "like": []any{"u1"}}),
		like: func(statusId string) (*StatusEntry, error) {
			close(started)
			<-release
			return NormalizeStatus(Record{"_id": "s1", "like": []any{"u1", "u2"}}), nil
		},
	}
	feed := newTestFeed(t, api, Identity{UserId: "u2"})

	callback, results := NewBlockingFeedCallback[*StatusEntry]()
	feed.ToggleLike("s1", callback)
	<-started

	// the optimistic state is already published
	assert.Equal(t, feed.IsLikePending("s1"), true)
	status := mustStatus(t, feed, "s1")
	assert.Equal(t, status.LikeCount, 2)
	assert.Equal(t, status.IsLiked, true)

	_, err := feed.ToggleLikeSync(context.Background(), "s1")
	assert.Equal(t, errors.Is(err, ErrMutationPending), true)
	assert.Equal(t, mustStatus(t, feed, "s1") == status, true)

	close(release)
	result := <-results
	assert.Equal(t, result.Error, nil)
	assert.Equal(t, result.Result.LikeCount, 2)
	assert.Equal(t, feed.IsLikePending("s1"), false)
}

// With no identity the server roster cannot be read,
// so the confirmed state takes the viewer's intent. This is a deliberate compromise.
func TestFeedToggleUnknownIdentityTakesIntent(t *testing.T) {
	api := &testFeedApi{
		listStatuses: listOf(Record{"_id": "s1", "like": []any{"u1"}}),
		like: func(statusId string) (*StatusEntry, error) {
			return NormalizeStatus(Record{"_id": "s1", "like": []any{"u1", "u9"}}), nil
		},
		unlike: func(statusId string) (*StatusEntry, error) {
			return NormalizeStatus(Record{"_id": "s1", "like": []any{"u1"}}), nil
		},
	}
	feed := newTestFeed(t, api, Identity{})

	status, err := feed.ToggleLikeSync(context.Background(), "s1")
	assert.Equal(t, err, nil)
	assert.Equal(t, status.LikeCount, 2)
	assert.Equal(t, status.IsLiked, true)

	status, err = feed.ToggleLikeSync(context.Background(), "s1")
	assert.Equal(t, err, nil)
	assert.Equal(t, status.LikeCount, 1)
	assert.Equal(t, status.IsLiked, false)
}

func TestFeedToggleEmptyResponseRefetches(t *testing.T) {
	api := &testFeedApi{
		listStatuses: listOf(Record{"_id": "s1", "like": []any{"u1"}}),
		getStatus: func(statusId string) (*StatusEntry, error) {
			return NormalizeStatus(Record{"_id": "s1", "like": []any{"u1", "u2"}, "content": "fresh"}), nil
		},
	}
	feed := newTestFeed(t, api, Identity{UserId: "u2"})

	status, err := feed.ToggleLikeSync(context.Background(), "s1")
	assert.Equal(t, err, nil)
	assert.Equal(t, status.LikeCount, 2)
	assert.Equal(t, status.IsLiked, true)
	assert.Equal(t, status.Content, "fresh")
	assert.Equal(t, api.Calls(), []string{"list", "like s1", "get s1"})
}

func TestFeedToggleEmptyResponseKeepsOptimistic(t *testing.T) {
	api := &testFeedApi{
		listStatuses: listOf(Record{"_id": "s1", "like": []any{"u1"}}),
	}
	feed := newTestFeed(t, api, Identity{UserId: "u2"})

	status, err := feed.ToggleLikeSync(context.Background(), "s1")
	assert.Equal(t, err, nil)
	assert.Equal(t, status.LikeCount, 2)
	assert.Equal(t, status.IsLiked, true)
}

func TestFeedToggleMissingStatus(t *testing.T) {
	feed := newTestFeed(t, &testFeedApi{}, Identity{})
	_, err := feed.ToggleLikeSync(context.Background(), "nope")
	assert.Equal(t, errors.Is(err, ErrStatusNotFound), true)
}

func TestFeedIdentityChangeRederives(t *testing.T) {
	api := &testFeedApi{
		listStatuses: listOf(Record{"_id": "s1", "like": []any{"u1", "u2"}}),
	}
	feed := newTestFeed(t, api, Identity{})
	assert.Equal(t, mustStatus(t, feed, "s1").IsLiked, false)

	changes := 0
	feed.AddFeedChangeCallback(func(snapshot *FeedSnapshot, window FeedWindow) {
		changes += 1
	})

	feed.IdentityResolver().Merge(Identity{UserId: "u2"})
	assert.Equal(t, mustStatus(t, feed, "s1").IsLiked, true)
	assert.Equal(t, changes, 1)
}

func TestFeedUnknownIdentityLikeClaimedOnResolve(t *testing.T) {
	api := &testFeedApi{
		listStatuses: listOf(Record{"_id": "s1", "like": []any{"u1"}}),
	}
	feed := newTestFeed(t, api, Identity{})

	// the like and the refetch both come back empty, so the anonymous marker stays
	status, err := feed.ToggleLikeSync(context.Background(), "s1")
	assert.Equal(t, err, nil)
	assert.Equal(t, status.LikeCount, 2)
	assert.Equal(t, status.IsLiked, true)

	feed.IdentityResolver().Merge(Identity{UserId: "u2"})
	status = mustStatus(t, feed, "s1")
	assert.Equal(t, status.LikeCount, 2)
	assert.Equal(t, status.IsLiked, true)
	members, _ := LikeMembers(status.Payload)
	assert.Equal(t, members, []any{"u1", "u2"})

	status, err = feed.ToggleLikeSync(context.Background(), "s1")
	assert.Equal(t, err, nil)
	assert.Equal(t, status.LikeCount, 1)
	assert.Equal(t, status.IsLiked, false)

	status, err = feed.ToggleLikeSync(context.Background(), "s1")
	assert.Equal(t, err, nil)
	assert.Equal(t, status.LikeCount, 2)
	assert.Equal(t, status.IsLiked, true)
}

func TestFeedIdentityChangeUsesCurrentIdentity(t *testing.T) {
	api := &testFeedApi{
		listStatuses: listOf(Record{"_id": "s1", "like": []any{"u2"}}),
	}
	feed := newTestFeed(t, api, Identity{Email: "b@x.com"})
	assert.Equal(t, mustStatus(t, feed, "s1").IsLiked, false)

	feed.IdentityResolver().Merge(Identity{UserId: "u2"})
	assert.Equal(t, mustStatus(t, feed, "s1").IsLiked, true)

	// a callback carrying an older identity arrives late
	feed.identityChanged(Identity{Email: "b@x.com"})
	assert.Equal(t, mustStatus(t, feed, "s1").IsLiked, true)
}

func TestFeedResolveProfile(t *testing.T) {
	api := &testFeedApi{
		listStatuses: listOf(Record{"_id": "s1", "like": []any{Record{"_id": "u3"}}}),
		getProfile: func() (*Profile, error) {
			return &Profile{Id: "u3", Email: "c@x.com"}, nil
		},
	}
	feed := NewFeedWithDefaults(context.Background(), api)
	defer feed.Close()

	snapshot, err := feed.BootstrapSync(context.Background())
	assert.Equal(t, err, nil)
	assert.Equal(t, snapshot != nil, true)
	assert.Equal(t, feed.Identity(), Identity{UserId: "u3", Email: "c@x.com"})
	assert.Equal(t, mustStatus(t, feed, "s1").IsLiked, true)
}

func TestFeedResolveProfileFailure(t *testing.T) {
	api := &testFeedApi{
		getProfile: func() (*Profile, error) {
			return nil, errors.New("offline")
		},
	}
	feed := newTestFeed(t, api, Identity{Email: "a@x.com"})

	_, err := feed.ResolveProfileSync(context.Background())
	assert.NotEqual(t, err, nil)
	assert.Equal(t, feed.Identity(), Identity{Email: "a@x.com"})
}

func TestFeedRefreshKeepsPendingLike(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	api := &testFeedApi{
		listStatuses: listOf(Record{"_id": "s1", "like": []any{"u1"}}),
		like: func(statusId string) (*StatusEntry, error) {
			close(started)
			<-release
			return nil, errors.New("failed")
		},
	}
	feed := newTestFeed(t, api, Identity{UserId: "u2"})

	callback, results := NewBlockingFeedCallback[*StatusEntry]()
	feed.ToggleLike("s1", callback)
	<-started

	_, err := feed.RefreshSync(context.Background())
	assert.Equal(t, err, nil)
	assert.Equal(t, mustStatus(t, feed, "s1").LikeCount, 2)

	close(release)
	result := <-results
	assert.NotEqual(t, result.Error, nil)
	assert.Equal(t, mustStatus(t, feed, "s1").LikeCount, 1)
	assert.Equal(t, mustStatus(t, feed, "s1").IsLiked, false)
}

func TestFeedReveal(t *testing.T) {
	records := []Record{}
	for i := 0; i < 25; i++ {
		records = append(records, Record{
			"_id":       fmt.Sprintf("s%d", i),
			"createdAt": i + 1,
		})
	}
	api := &testFeedApi{
		listStatuses: listOf(records...),
	}
	feed := newTestFeed(t, api, Identity{})

	visible := []int{feed.Window().Visible}
	for i := 0; i < 3; i++ {
		visible = append(visible, feed.LoadMore().Visible)
	}
	assert.Equal(t, visible, []int{10, 20, 25, 25})

	// newest first
	assert.Equal(t, feed.Visible()[0].Id, "s24")
	assert.Equal(t, len(feed.Visible()), 25)

	_, err := feed.RefreshSync(context.Background())
	assert.Equal(t, err, nil)
	assert.Equal(t, feed.Window(), FeedWindow{Total: 25, Visible: 10})
	assert.Equal(t, len(feed.Visible()), 10)
}

func TestFeedCreateStatus(t *testing.T) {
	api := &testFeedApi{
		listStatuses: listOf(Record{"_id": "s1"}),
		createStatus: func(content string) (*StatusEntry, error) {
			return NormalizeStatus(Record{"_id": "s2", "content": content}), nil
		},
	}
	feed := newTestFeed(t, api, Identity{UserId: "u1"})

	_, err := feed.CreateStatusSync(context.Background(), "   ")
	assert.Equal(t, errors.Is(err, ErrEmptyContent), true)

	status, err := feed.CreateStatusSync(context.Background(), " hello ")
	assert.Equal(t, err, nil)
	assert.Equal(t, status.Id, "s2")
	assert.Equal(t, status.Content, "hello")
	assert.Equal(t, status.Pending, false)
	assert.Equal(t, storeIds(feed.Snapshot()), []string{"s2", "s1"})
}

func TestFeedCreateStatusShowsInWindow(t *testing.T) {
	created := 0
	createStatus := func(content string) (*StatusEntry, error) {
		created += 1
		return NormalizeStatus(Record{"_id": fmt.Sprintf("new%d", created), "content": content}), nil
	}

	feed := newTestFeed(t, &testFeedApi{createStatus: createStatus}, Identity{UserId: "u1"})
	assert.Equal(t, feed.Window(), FeedWindow{Total: 0, Visible: 0})
	_, err := feed.CreateStatusSync(context.Background(), "first")
	assert.Equal(t, err, nil)
	assert.Equal(t, feed.Window(), FeedWindow{Total: 1, Visible: 1})
	assert.Equal(t, len(feed.Visible()), 1)

	records := []Record{}
	for i := 0; i < 5; i++ {
		records = append(records, Record{"_id": fmt.Sprintf("s%d", i)})
	}
	feed = newTestFeed(t, &testFeedApi{listStatuses: listOf(records...), createStatus: createStatus}, Identity{UserId: "u1"})
	_, err = feed.CreateStatusSync(context.Background(), "second")
	assert.Equal(t, err, nil)
	assert.Equal(t, feed.Window(), FeedWindow{Total: 6, Visible: 6})
	assert.Equal(t, len(feed.Visible()), 6)
	assert.Equal(t, feed.Visible()[0].Content, "second")
}

func TestFeedCreateStatusFailure(t *testing.T) {
	api := &testFeedApi{
		listStatuses: listOf(Record{"_id": "s1"}),
		createStatus: func(content string) (*StatusEntry, error) {
			return nil, errors.New("rejected")
		},
	}
	feed := newTestFeed(t, api, Identity{UserId: "u1"})

	published := []int{}
	feed.AddFeedChangeCallback(func(snapshot *FeedSnapshot, window FeedWindow) {
		published = append(published, snapshot.Len())
	})

	_, err := feed.CreateStatusSync(context.Background(), "hello")
	var mutationErr *MutationError
	assert.Equal(t, errors.As(err, &mutationErr), true)
	assert.Equal(t, mutationErr.Op, MutationOpCreateStatus)
	assert.Equal(t, IsLocalId(mutationErr.StatusId), true)

	// published with the pending status, then without
	assert.Equal(t, published, []int{2, 1})
	assert.Equal(t, storeIds(feed.Snapshot()), []string{"s1"})
}

func TestFeedDeleteStatusFailureRestoresPosition(t *testing.T) {
	api := &testFeedApi{
		listStatuses: listOf(
			Record{"_id": "s1", "createdAt": 1},
			Record{"_id": "s2", "createdAt": 2},
			Record{"_id": "s3", "createdAt": 3},
		),
		deleteStatus: func(statusId string) error {
			return errors.New("forbidden")
		},
	}
	feed := newTestFeed(t, api, Identity{UserId: "u1"})
	assert.Equal(t, storeIds(feed.Snapshot()), []string{"s3", "s2", "s1"})

	err := feed.DeleteStatusSync(context.Background(), "s2")
	var mutationErr *MutationError
	assert.Equal(t, errors.As(err, &mutationErr), true)
	assert.Equal(t, mutationErr.Op, MutationOpDeleteStatus)
	assert.Equal(t, storeIds(feed.Snapshot()), []string{"s3", "s2", "s1"})
	assert.Equal(t, feed.Window(), FeedWindow{Total: 3, Visible: 3})
}

func TestFeedDeleteStatusFailureKeepsRefreshedCopy(t *testing.T) {
	content := "before"
	api := &testFeedApi{}
	api.listStatuses = func() ([]*StatusEntry, error) {
		return listOf(Record{"_id": "s1", "content": content})()
	}
	feed := newTestFeed(t, api, Identity{UserId: "u1"})
	api.deleteStatus = func(statusId string) error {
		// a refresh lands while the delete is in flight
		content = "after"
		_, err := feed.RefreshSync(context.Background())
		assert.Equal(t, err, nil)
		return errors.New("forbidden")
	}

	err := feed.DeleteStatusSync(context.Background(), "s1")
	var mutationErr *MutationError
	assert.Equal(t, errors.As(err, &mutationErr), true)
	assert.Equal(t, storeIds(feed.Snapshot()), []string{"s1"})
	assert.Equal(t, mustStatus(t, feed, "s1").Content, "after")
}

func TestFeedDeleteStatus(t *testing.T) {
	api := &testFeedApi{
		listStatuses: listOf(Record{"_id": "s1"}, Record{"_id": "s2"}),
	}
	feed := newTestFeed(t, api, Identity{UserId: "u1"})

	err := feed.DeleteStatusSync(context.Background(), "s1")
	assert.Equal(t, err, nil)
	assert.Equal(t, storeIds(feed.Snapshot()), []string{"s2"})
	assert.Equal(t, feed.Window(), FeedWindow{Total: 1, Visible: 1})

	err = feed.DeleteStatusSync(context.Background(), "s1")
	assert.Equal(t, errors.Is(err, ErrStatusNotFound), true)
}

func TestFeedAddComment(t *testing.T) {
	api := &testFeedApi{
		listStatuses: listOf(Record{"_id": "s1", "like": []any{"u1"}}),
		addComment: func(statusId string, content string) (*StatusEntry, error) {
			return NormalizeStatus(Record{
				"_id":  "s1",
				"like": []any{"u1"},
				"comment": []any{
					Record{"_id": "c1", "content": content, "createdBy": Record{"_id": "u2"}},
				},
			}), nil
		},
	}
	feed := newTestFeed(t, api, Identity{UserId: "u2", Email: "dee@x.com"})

	status, err := feed.AddCommentSync(context.Background(), "s1", "nice")
	assert.Equal(t, err, nil)
	assert.Equal(t, len(status.Comments), 1)
	assert.Equal(t, status.Comments[0].Id, "c1")
	// the server did not name the author, the viewer's own name is used
	assert.Equal(t, status.Comments[0].AuthorName, "dee")
	assert.Equal(t, status.LikeCount, 1)
	assert.Equal(t, feed.CanDeleteComment("s1", "c1"), true)
}

func TestFeedAddCommentFailure(t *testing.T) {
	api := &testFeedApi{
		listStatuses: listOf(Record{
			"_id":     "s1",
			"comment": []any{Record{"_id": "c0", "content": "first", "createdBy": Record{"name": "Ann"}}},
		}),
		addComment: func(statusId string, content string) (*StatusEntry, error) {
			return nil, errors.New("too long")
		},
	}
	feed := newTestFeed(t, api, Identity{UserId: "u2"})

	pendingSeen := false
	feed.AddFeedChangeCallback(func(snapshot *FeedSnapshot, window FeedWindow) {
		status, _ := snapshot.Get("s1")
		if len(status.Comments) == 2 && status.Comments[1].Pending {
			pendingSeen = true
		}
	})

	_, err := feed.AddCommentSync(context.Background(), "s1", "second")
	var mutationErr *MutationError
	assert.Equal(t, errors.As(err, &mutationErr), true)
	assert.Equal(t, mutationErr.Op, MutationOpAddComment)
	assert.Equal(t, pendingSeen, true)

	status := mustStatus(t, feed, "s1")
	assert.Equal(t, len(status.Comments), 1)
	assert.Equal(t, status.Comments[0].AuthorName, "Ann")
}

func TestFeedRemoveComment(t *testing.T) {
	api := &testFeedApi{
		listStatuses: listOf(Record{
			"_id": "s1",
			"comment": []any{
				Record{"_id": "c1", "content": "a"},
				Record{"_id": "c2", "content": "b"},
			},
		}),
		removeComment: func(commentId string, statusId string) (*StatusEntry, error) {
			return nil, errors.New("not yours")
		},
	}
	feed := newTestFeed(t, api, Identity{UserId: "u2"})

	_, err := feed.RemoveCommentSync(context.Background(), "s1", "local-x")
	assert.Equal(t, errors.Is(err, ErrMutationPending), true)

	_, err = feed.RemoveCommentSync(context.Background(), "s1", "c9")
	assert.Equal(t, errors.Is(err, ErrCommentNotFound), true)

	_, err = feed.RemoveCommentSync(context.Background(), "s1", "c1")
	var mutationErr *MutationError
	assert.Equal(t, errors.As(err, &mutationErr), true)
	assert.Equal(t, mutationErr.Op, MutationOpRemoveComment)

	status := mustStatus(t, feed, "s1")
	assert.Equal(t, len(status.Comments), 2)
	assert.Equal(t, status.Comments[0].Id, "c1")
	assert.Equal(t, status.Comments[1].Id, "c2")
}

func TestFeedLoadDetails(t *testing.T) {
	api := &testFeedApi{
		listStatuses: listOf(Record{
			"_id":     "s1",
			"comment": []any{Record{"_id": "c1", "createdBy": Record{"name": "Gus"}}},
		}),
		getStatus: func(statusId string) (*StatusEntry, error) {
			if statusId != "s1" {
				return nil, nil
			}
			return NormalizeStatus(Record{
				"_id":     "s1",
				"content": "details",
				"comment": []any{Record{"_id": "c1"}, Record{"_id": "c2"}},
			}), nil
		},
	}
	feed := newTestFeed(t, api, Identity{})

	status, err := feed.LoadDetailsSync(context.Background(), "s1")
	assert.Equal(t, err, nil)
	assert.Equal(t, status.Content, "details")
	assert.Equal(t, len(status.Comments), 2)
	// the resolved name survives the placeholder in the fresh copy
	assert.Equal(t, status.Comments[0].AuthorName, "Gus")
	assert.Equal(t, status.Comments[1].AuthorName, UnknownCommentAuthorName)

	_, err = feed.LoadDetailsSync(context.Background(), "s9")
	assert.Equal(t, errors.Is(err, ErrStatusNotFound), true)
}

func TestFeedChangeCallbackPanic(t *testing.T) {
	api := &testFeedApi{
		listStatuses: listOf(Record{"_id": "s1"}),
	}
	feed := newTestFeed(t, api, Identity{})
	feed.AddFeedChangeCallback(func(snapshot *FeedSnapshot, window FeedWindow) {
		panic("subscriber failure")
	})
	assert.Equal(t, feed.LoadMore(), FeedWindow{Total: 1, Visible: 1})
}

func TestFeedAsyncRefresh(t *testing.T) {
	api := &testFeedApi{
		listStatuses: listOf(Record{"_id": "s1"}, Record{"_id": "s2"}),
	}
	feed := NewFeedWithDefaults(context.Background(), api)
	defer feed.Close()

	callback, results := NewBlockingFeedCallback[*FeedSnapshot]()
	feed.Refresh(callback)
	result := <-results
	assert.Equal(t, result.Error, nil)
	assert.Equal(t, result.Result.Len(), 2)
	assert.Equal(t, feed.Window(), FeedWindow{Total: 2, Visible: 2})
}
