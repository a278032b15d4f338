package feed

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)


// The feed engine. Owns the store, the reveal window, and the viewer identity,
// and applies remote mutations optimistically with rollback on failure.
//
// State changes are short critical sections under `stateLock` with no i/o.
// Remote calls run outside the lock and their results are folded back in the order they settle.
// Every fold recomputes from payloads, so a late result cannot corrupt newer state.


type FeedChangeFunction = func(snapshot *FeedSnapshot, window FeedWindow)


func DefaultFeedSettings() *FeedSettings {
	return &FeedSettings{
		RevealPagerSettings:    DefaultRevealPagerSettings(),
		RefetchOnEmptyResponse: true,
	}
}

type FeedSettings struct {
	RevealPagerSettings *RevealPagerSettings
	// a mutation response without a usable status falls back to fetching the status
	RefetchOnEmptyResponse bool
}


// implemented by api clients that attach a credential to their calls
type byJwtSetter interface {
	SetByJwt(byJwt string)
}


type Feed struct {
	ctx    context.Context
	cancel context.CancelFunc

	api      FeedApi
	settings *FeedSettings
	log      LogFunction

	identityResolver *IdentityResolver
	store            *FeedStore
	pager            *RevealPager

	stateLock sync.Mutex
	// status id -> in flight like intent
	pendingLikes map[string]LikeIntent
	profile      *Profile

	statusFetchGroup singleflight.Group

	feedChangeCallbacks *CallbackList[FeedChangeFunction]

	unsubIdentity func()
}

func NewFeedWithDefaults(ctx context.Context, api FeedApi) *Feed {
	return NewFeed(ctx, api, DefaultFeedSettings())
}

func NewFeed(ctx context.Context, api FeedApi, settings *FeedSettings) *Feed {
	cancelCtx, cancel := context.WithCancel(ctx)

	feed := &Feed{
		ctx:                 cancelCtx,
		cancel:              cancel,
		api:                 api,
		settings:            settings,
		log:                 LogFn(LogLevelInfo, "feed"),
		identityResolver:    NewIdentityResolver(),
		store:               NewFeedStore(),
		pager:               NewRevealPager(settings.RevealPagerSettings),
		pendingLikes:        map[string]LikeIntent{},
		feedChangeCallbacks: NewCallbackList[FeedChangeFunction](),
	}
	feed.unsubIdentity = feed.identityResolver.AddIdentityChangeCallback(feed.identityChanged)
	return feed
}

func (self *Feed) Close() {
	self.unsubIdentity()
	self.cancel()
}

func (self *Feed) AddFeedChangeCallback(feedChangeCallback FeedChangeFunction) func() {
	callbackId := self.feedChangeCallbacks.Add(feedChangeCallback)
	return func() {
		self.feedChangeCallbacks.Remove(callbackId)
	}
}

func (self *Feed) notify(snapshot *FeedSnapshot, window FeedWindow) {
	for _, feedChangeCallback := range self.feedChangeCallbacks.Get() {
		HandleError(func() {
			feedChangeCallback(snapshot, window)
		})
	}
}

// must be called with `stateLock`
func (self *Feed) publishWithLock(snapshot *FeedSnapshot) (*FeedSnapshot, FeedWindow) {
	return snapshot, self.pager.SetTotal(snapshot.Len())
}


// identity

func (self *Feed) Identity() Identity {
	return self.identityResolver.Identity()
}

func (self *Feed) IdentityResolver() *IdentityResolver {
	return self.identityResolver
}

func (self *Feed) Profile() *Profile {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.profile
}

// attaches the credential to the api and applies the identity it carries
func (self *Feed) SetCredential(jwt string) {
	if setter, ok := self.api.(byJwtSetter); ok {
		setter.SetByJwt(jwt)
	}
	self.identityResolver.ApplyCredential(jwt)
}

func (self *Feed) SignInSync(ctx context.Context, email string, password string) (*SignInResult, error) {
	result, err := self.api.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	self.SetCredential(result.Token)
	return result, nil
}

// The authoritative identity. A failure leaves the identity as it was.
func (self *Feed) ResolveProfileSync(ctx context.Context) (*Profile, error) {
	profile, err := self.api.GetProfile(ctx)
	if err != nil {
		self.log("Could not resolve the profile = %s", err)
		return nil, err
	}
	if profile == nil {
		self.log("Profile response carried no usable record")
		return nil, nil
	}
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()
		self.profile = profile
	}()
	self.identityResolver.ApplyProfile(profile)
	return profile, nil
}

// Runs in the identity callback, outside the resolver lock.
// Callbacks from concurrent merges may arrive out of order, so the current identity is read
// under `stateLock` rather than taken from the argument.
func (self *Feed) identityChanged(Identity) {
	snapshot, window := func() (*FeedSnapshot, FeedWindow) {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		identity := self.identityResolver.Identity()
		LogFn(LogLevelDebug, "feed")("Identity changed, re-deriving like state (%s, %s)", identity.UserId, identity.Email)

		snapshot := self.store.UpdateAll(func(entry *StatusEntry) *StatusEntry {
			return BackfillComments(ReconcileLikeState(ClaimAnonymousLikes(entry, identity), identity))
		})
		return self.publishWithLock(snapshot)
	}()
	self.notify(snapshot, window)
}

// Resolves the profile and loads the feed concurrently.
// A profile failure is not fatal since the credential may already identify the viewer.
func (self *Feed) BootstrapSync(ctx context.Context) (*FeedSnapshot, error) {
	var snapshot *FeedSnapshot
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		self.ResolveProfileSync(groupCtx)
		return nil
	})
	group.Go(func() error {
		var err error
		snapshot, err = self.RefreshSync(groupCtx)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return snapshot, nil
}


// reading

func (self *Feed) Snapshot() *FeedSnapshot {
	return self.store.Snapshot()
}

func (self *Feed) Window() FeedWindow {
	return self.pager.Window()
}

// the revealed prefix of the feed
func (self *Feed) Visible() []*StatusEntry {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.store.Snapshot().Slice(self.pager.Window().Visible)
}

func (self *Feed) Status(statusId string) (*StatusEntry, bool) {
	return self.store.Snapshot().Get(statusId)
}

// grows the revealed window. Never fetches.
func (self *Feed) LoadMore() FeedWindow {
	snapshot, window := func() (*FeedSnapshot, FeedWindow) {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()
		return self.store.Snapshot(), self.pager.EndReached()
	}()
	self.notify(snapshot, window)
	return window
}

func (self *Feed) isLikePendingWithLock(statusId string) bool {
	_, ok := self.pendingLikes[statusId]
	return ok
}

func (self *Feed) IsLikePending(statusId string) bool {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.isLikePendingWithLock(statusId)
}

// Replaces the feed with the server list, sorted newest first, and resets the window.
// Entries with a like in flight keep their local copy. Statuses created locally
// and not yet confirmed stay at the front.
func (self *Feed) RefreshSync(ctx context.Context) (*FeedSnapshot, error) {
	entries, err := self.api.ListStatuses(ctx)
	if err != nil {
		self.log("Could not refresh the feed = %s", err)
		return nil, err
	}

	snapshot, window := func() (*FeedSnapshot, FeedWindow) {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		identity := self.identityResolver.Identity()
		prev := self.store.Snapshot()

		nextEntries := []*StatusEntry{}
		for _, entry := range prev.Entries() {
			if entry.Pending && IsLocalId(entry.Id) {
				nextEntries = append(nextEntries, entry)
			}
		}
		for _, server := range SortStatuses(entries) {
			local, _ := prev.Get(server.Id)
			if local != nil && self.isLikePendingWithLock(server.Id) {
				nextEntries = append(nextEntries, local)
			} else {
				nextEntries = append(nextEntries, refreshedStatus(local, server, identity))
			}
		}

		snapshot := self.store.ReplaceAll(nextEntries)
		return snapshot, self.pager.Reset(snapshot.Len())
	}()
	self.notify(snapshot, window)
	return snapshot, nil
}

func (self *Feed) Refresh(callback SnapshotCallback) {
	go HandleError(func() {
		callback.Result(self.RefreshSync(self.ctx))
	})
}

// A fresh server copy replaces the local one outright, except that resolved comment names carry over.
// With an unknown identity the local `IsLiked` is kept unless the server says otherwise.
func refreshedStatus(local *StatusEntry, server *StatusEntry, identity Identity) *StatusEntry {
	next := server
	if local != nil {
		next = server.clone()
		next.Comments = MergeComments(local.Comments, server.Comments)
		if identity.IsEmpty() {
			if _, ok := likedHintOf(server.Payload); !ok {
				next.IsLiked = local.IsLiked
			}
		}
	}
	return BackfillComments(ReconcileLikeState(next, identity))
}

// fetches one status, coalescing concurrent fetches of the same id
func (self *Feed) fetchStatus(ctx context.Context, statusId string) (*StatusEntry, error) {
	v, err, _ := self.statusFetchGroup.Do(statusId, func() (any, error) {
		return self.api.GetStatus(ctx, statusId)
	})
	if err != nil {
		return nil, err
	}
	status, _ := v.(*StatusEntry)
	return status, nil
}

// Loads the full record of one status, including its comments.
func (self *Feed) LoadDetailsSync(ctx context.Context, statusId string) (*StatusEntry, error) {
	server, err := self.fetchStatus(ctx, statusId)
	if err != nil {
		return nil, err
	}
	if server == nil {
		return nil, ErrStatusNotFound
	}

	var status *StatusEntry
	snapshot, window := func() (*FeedSnapshot, FeedWindow) {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		identity := self.identityResolver.Identity()
		local, ok := self.store.Snapshot().Get(statusId)
		var snapshot *FeedSnapshot
		switch {
		case ok && self.isLikePendingWithLock(statusId):
			status = local
			snapshot = self.store.Snapshot()
		case ok:
			status = refreshedStatus(local, server, identity)
			snapshot, _ = self.store.Update(statusId, func(*StatusEntry) *StatusEntry {
				return status
			})
		default:
			status = refreshedStatus(nil, server, identity)
			snapshot = self.store.Upsert(status)
		}
		return self.publishWithLock(snapshot)
	}()
	self.notify(snapshot, window)
	return status, nil
}

func (self *Feed) LoadDetails(statusId string, callback StatusCallback) {
	go HandleError(func() {
		callback.Result(self.LoadDetailsSync(self.ctx, statusId))
	})
}

// a mutation response without a usable status
func (self *Feed) refetchIfEmpty(ctx context.Context, statusId string, server *StatusEntry) *StatusEntry {
	if server != nil || !self.settings.RefetchOnEmptyResponse {
		return server
	}
	server, err := self.fetchStatus(ctx, statusId)
	if err != nil {
		self.log("[%s]Could not refetch after an empty response = %s", statusId, err)
		return nil
	}
	return server
}


// likes

// Flips the viewer's like on a status.
// The change is published before the remote call. A second toggle of the same status
// while one is in flight returns `ErrMutationPending` and changes nothing.
// On failure the like state is restored and a `MutationError` is returned.
func (self *Feed) ToggleLikeSync(ctx context.Context, statusId string) (*StatusEntry, error) {
	var entry *StatusEntry
	var optimistic *StatusEntry
	var intent LikeIntent
	var err error
	snapshot, window := func() (*FeedSnapshot, FeedWindow) {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		if self.isLikePendingWithLock(statusId) {
			err = ErrMutationPending
			return nil, FeedWindow{}
		}
		var ok bool
		entry, ok = self.store.Snapshot().Get(statusId)
		if !ok {
			err = ErrStatusNotFound
			return nil, FeedWindow{}
		}
		if entry.Pending {
			err = ErrMutationPending
			return nil, FeedWindow{}
		}

		identity := self.identityResolver.Identity()
		intent = LikeIntentOf(!entry.IsLiked)
		optimistic = OptimisticLike(entry, identity, intent)
		self.pendingLikes[statusId] = intent
		snapshot, _ := self.store.Update(statusId, func(*StatusEntry) *StatusEntry {
			return optimistic
		})
		return self.publishWithLock(snapshot)
	}()
	if err != nil {
		return nil, err
	}
	self.notify(snapshot, window)

	debugLog := LogFn(LogLevelDebug, "feed")
	debugLog("[%s]%s issued", statusId, intent)

	var server *StatusEntry
	if intent == LikeIntentLike {
		server, err = self.api.Like(ctx, statusId)
	} else {
		server, err = self.api.Unlike(ctx, statusId)
	}
	if err == nil {
		server = self.refetchIfEmpty(ctx, statusId, server)
	}

	var status *StatusEntry
	snapshot, window = func() (*FeedSnapshot, FeedWindow) {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		delete(self.pendingLikes, statusId)

		var snapshot *FeedSnapshot
		if err != nil {
			snapshot, _ = self.store.Update(statusId, func(current *StatusEntry) *StatusEntry {
				return restoreLikeState(current, optimistic, entry)
			})
		} else if server != nil {
			identity := self.identityResolver.Identity()
			snapshot, _ = self.store.Update(statusId, func(current *StatusEntry) *StatusEntry {
				return ReconcileServerStatus(current, server, identity, intent)
			})
		} else {
			// nothing to confirm against. The optimistic state stands.
			snapshot = self.store.Snapshot()
		}
		status, _ = snapshot.Get(statusId)
		return self.publishWithLock(snapshot)
	}()
	self.notify(snapshot, window)

	if err != nil {
		self.log("[%s]%s failed and was rolled back = %s", statusId, intent, err)
		return nil, &MutationError{
			Op:       likeMutationOp(intent),
			StatusId: statusId,
			Err:      err,
		}
	}
	debugLog("[%s]%s settled", statusId, intent)
	return status, nil
}

func (self *Feed) ToggleLike(statusId string, callback StatusCallback) {
	go HandleError(func() {
		callback.Result(self.ToggleLikeSync(self.ctx, statusId))
	})
}

// Puts back the like state of `prev` on the current entry.
// Other changes that landed while the like was in flight (e.g. comments) are kept.
func restoreLikeState(current *StatusEntry, optimistic *StatusEntry, prev *StatusEntry) *StatusEntry {
	if current == optimistic {
		return prev
	}
	payload := Record{}
	if current.Payload != nil {
		payload = maps.Clone(current.Payload)
	}
	for _, keys := range [][]string{likeMembershipKeys, likeCountKeys, likedHintKeys} {
		for _, key := range keys {
			if value, ok := prev.Payload[key]; ok {
				payload[key] = value
			} else {
				delete(payload, key)
			}
		}
	}
	next := current.clone()
	next.Payload = payload
	next.LikeCount = prev.LikeCount
	next.IsLiked = prev.IsLiked
	return next
}


// statuses

// Publishes a pending local status at the front of the feed, then creates it remotely.
// On success the local status is replaced in place by the server copy.
func (self *Feed) CreateStatusSync(ctx context.Context, content string) (*StatusEntry, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	local := self.newLocalStatus(content)
	snapshot, window := func() (*FeedSnapshot, FeedWindow) {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()
		return self.publishWithLock(self.store.Upsert(local))
	}()
	self.notify(snapshot, window)

	server, err := self.api.CreateStatus(ctx, content)

	var status *StatusEntry
	snapshot, window = func() (*FeedSnapshot, FeedWindow) {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		snapshot, _, index := self.store.Remove(local.Id)
		if err == nil && server != nil {
			identity := self.identityResolver.Identity()
			status = BackfillComments(ReconcileLikeState(server, identity))
			if index < 0 {
				// a refresh dropped the local status
				index = 0
			}
			snapshot = self.store.InsertAt(index, status)
		}
		return self.publishWithLock(snapshot)
	}()
	self.notify(snapshot, window)

	if err != nil {
		self.log("[%s]Create failed and was rolled back = %s", local.Id, err)
		return nil, &MutationError{
			Op:       MutationOpCreateStatus,
			StatusId: local.Id,
			Err:      err,
		}
	}
	if server == nil {
		// created, but the response did not say what. Reload to pick it up.
		if _, err := self.RefreshSync(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return status, nil
}

func (self *Feed) CreateStatus(content string, callback StatusCallback) {
	go HandleError(func() {
		callback.Result(self.CreateStatusSync(self.ctx, content))
	})
}

func (self *Feed) newLocalStatus(content string) *StatusEntry {
	identity := self.identityResolver.Identity()
	author := self.viewerAuthor(identity)
	authorName := author.Name
	if authorName == "" {
		authorName = UnknownStatusAuthorName
	}
	return &StatusEntry{
		Id:         NewLocalId(),
		Content:    content,
		CreatedAt:  time.Now(),
		Author:     author,
		AuthorName: authorName,
		Payload:    Record{},
		Pending:    true,
	}
}

func (self *Feed) viewerAuthor(identity Identity) AuthorRef {
	author := AuthorRef{
		Id:    identity.UserId,
		Email: identity.Email,
	}
	if profile := self.Profile(); profile != nil {
		author.Name = profile.DisplayName()
		author.Image = profile.Image
	}
	if author.Name == "" {
		author.Name = emailLocalPart(identity.Email)
	}
	return author
}

// Removes the status immediately. On failure it is put back at the position it had.
func (self *Feed) DeleteStatusSync(ctx context.Context, statusId string) error {
	var removed *StatusEntry
	var index int
	var err error
	snapshot, window := func() (*FeedSnapshot, FeedWindow) {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		entry, ok := self.store.Snapshot().Get(statusId)
		if !ok {
			err = ErrStatusNotFound
			return nil, FeedWindow{}
		}
		if entry.Pending {
			err = ErrMutationPending
			return nil, FeedWindow{}
		}
		var snapshot *FeedSnapshot
		snapshot, removed, index = self.store.Remove(statusId)
		return self.publishWithLock(snapshot)
	}()
	if err != nil {
		return err
	}
	self.notify(snapshot, window)

	err = self.api.DeleteStatus(ctx, statusId)

	snapshot, window = func() (*FeedSnapshot, FeedWindow) {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		if err == nil {
			// a refresh may have brought it back while the delete was in flight
			snapshot, _, _ := self.store.Remove(statusId)
			return self.publishWithLock(snapshot)
		}
		snapshot := self.store.Snapshot()
		if _, ok := snapshot.Get(statusId); !ok {
			snapshot = self.store.InsertAt(index, removed)
		}
		// else a refresh brought back a fresher copy
		return self.publishWithLock(snapshot)
	}()
	self.notify(snapshot, window)

	if err != nil {
		self.log("[%s]Delete failed and was rolled back = %s", statusId, err)
		return &MutationError{
			Op:       MutationOpDeleteStatus,
			StatusId: statusId,
			Err:      err,
		}
	}
	return nil
}

func (self *Feed) DeleteStatus(statusId string, callback FeedCallback[bool]) {
	go HandleError(func() {
		err := self.DeleteStatusSync(self.ctx, statusId)
		callback.Result(err == nil, err)
	})
}


// comments

// Appends a pending local comment, then adds it remotely.
// On success the status is reconciled with the server copy, which carries the real comment.
func (self *Feed) AddCommentSync(ctx context.Context, statusId string, content string) (*StatusEntry, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	identity := self.identityResolver.Identity()
	author := self.viewerAuthor(identity)
	authorName := author.Name
	if authorName == "" {
		authorName = UnknownCommentAuthorName
	}
	local := &CommentEntry{
		Id:         NewLocalId(),
		Content:    content,
		AuthorName: authorName,
		Author:     author,
		CreatedAt:  time.Now(),
		Pending:    true,
	}

	var err error
	snapshot, window := func() (*FeedSnapshot, FeedWindow) {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		entry, ok := self.store.Snapshot().Get(statusId)
		if !ok {
			err = ErrStatusNotFound
			return nil, FeedWindow{}
		}
		if entry.Pending {
			err = ErrMutationPending
			return nil, FeedWindow{}
		}
		snapshot, _ := self.store.Update(statusId, func(current *StatusEntry) *StatusEntry {
			comments := slices.Clone(current.Comments)
			return current.withComments(append(comments, local))
		})
		return self.publishWithLock(snapshot)
	}()
	if err != nil {
		return nil, err
	}
	self.notify(snapshot, window)

	server, err := self.api.AddComment(ctx, statusId, content)
	if err == nil {
		server = self.refetchIfEmpty(ctx, statusId, server)
	}

	var status *StatusEntry
	snapshot, window = func() (*FeedSnapshot, FeedWindow) {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		var snapshot *FeedSnapshot
		if err != nil {
			snapshot, _ = self.store.Update(statusId, func(current *StatusEntry) *StatusEntry {
				return withoutComment(current, local.Id)
			})
		} else if server != nil {
			identity := self.identityResolver.Identity()
			intent := self.pendingLikes[statusId]
			snapshot, _ = self.store.Update(statusId, func(current *StatusEntry) *StatusEntry {
				return claimOwnComments(ReconcileServerStatus(current, server, identity, intent), identity, author.Name)
			})
		} else {
			snapshot = self.store.Snapshot()
		}
		status, _ = snapshot.Get(statusId)
		return self.publishWithLock(snapshot)
	}()
	self.notify(snapshot, window)

	if err != nil {
		self.log("[%s]Comment failed and was rolled back = %s", statusId, err)
		return nil, &MutationError{
			Op:       MutationOpAddComment,
			StatusId: statusId,
			Err:      err,
		}
	}
	return status, nil
}

func (self *Feed) AddComment(statusId string, content string, callback StatusCallback) {
	go HandleError(func() {
		callback.Result(self.AddCommentSync(self.ctx, statusId, content))
	})
}

// Removes the comment immediately. On failure it is put back at the position it had.
// Comments that are still pending cannot be removed.
func (self *Feed) RemoveCommentSync(ctx context.Context, statusId string, commentId string) (*StatusEntry, error) {
	if IsLocalId(commentId) {
		return nil, ErrMutationPending
	}

	var removed *CommentEntry
	var index int
	var err error
	snapshot, window := func() (*FeedSnapshot, FeedWindow) {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		entry, ok := self.store.Snapshot().Get(statusId)
		if !ok {
			err = ErrStatusNotFound
			return nil, FeedWindow{}
		}
		index = slices.IndexFunc(entry.Comments, func(comment *CommentEntry) bool {
			return comment != nil && comment.Id == commentId
		})
		if index < 0 {
			err = ErrCommentNotFound
			return nil, FeedWindow{}
		}
		removed = entry.Comments[index]
		snapshot, _ := self.store.Update(statusId, func(current *StatusEntry) *StatusEntry {
			return withoutComment(current, commentId)
		})
		return self.publishWithLock(snapshot)
	}()
	if err != nil {
		return nil, err
	}
	self.notify(snapshot, window)

	server, err := self.api.RemoveComment(ctx, commentId, statusId)
	if err == nil {
		server = self.refetchIfEmpty(ctx, statusId, server)
	}

	var status *StatusEntry
	snapshot, window = func() (*FeedSnapshot, FeedWindow) {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		var snapshot *FeedSnapshot
		if err != nil {
			snapshot, _ = self.store.Update(statusId, func(current *StatusEntry) *StatusEntry {
				return withCommentAt(current, index, removed)
			})
		} else if server != nil {
			identity := self.identityResolver.Identity()
			intent := self.pendingLikes[statusId]
			snapshot, _ = self.store.Update(statusId, func(current *StatusEntry) *StatusEntry {
				return ReconcileServerStatus(current, server, identity, intent)
			})
		} else {
			snapshot = self.store.Snapshot()
		}
		status, _ = snapshot.Get(statusId)
		return self.publishWithLock(snapshot)
	}()
	self.notify(snapshot, window)

	if err != nil {
		self.log("[%s]Comment removal failed and was rolled back = %s", statusId, err)
		return nil, &MutationError{
			Op:       MutationOpRemoveComment,
			StatusId: statusId,
			Err:      err,
		}
	}
	return status, nil
}

func (self *Feed) RemoveComment(statusId string, commentId string, callback StatusCallback) {
	go HandleError(func() {
		callback.Result(self.RemoveCommentSync(self.ctx, statusId, commentId))
	})
}

func withoutComment(status *StatusEntry, commentId string) *StatusEntry {
	comments := slices.DeleteFunc(slices.Clone(status.Comments), func(comment *CommentEntry) bool {
		return comment != nil && comment.Id == commentId
	})
	if len(comments) == len(status.Comments) {
		return status
	}
	return status.withComments(comments)
}

func withCommentAt(status *StatusEntry, index int, comment *CommentEntry) *StatusEntry {
	for _, c := range status.Comments {
		if c != nil && c.Id == comment.Id {
			return status
		}
	}
	index = max(0, min(index, len(status.Comments)))
	return status.withComments(slices.Insert(slices.Clone(status.Comments), index, comment))
}

// The server copy of a new comment may not name its author.
// Placeholder names on the viewer's own comments take the viewer's name.
func claimOwnComments(status *StatusEntry, identity Identity, name string) *StatusEntry {
	if name == "" || identity.IsEmpty() {
		return status
	}
	var comments []*CommentEntry
	for i, comment := range status.Comments {
		if comment == nil || !IsPlaceholderAuthorName(comment.AuthorName) || !identity.MatchesAuthor(comment.Author) {
			continue
		}
		if comments == nil {
			comments = slices.Clone(status.Comments)
		}
		claimed := comment.clone()
		claimed.AuthorName = name
		comments[i] = claimed
	}
	if comments == nil {
		return status
	}
	return status.withComments(comments)
}


// ownership

func (self *Feed) CanDeleteStatus(statusId string) bool {
	status, ok := self.store.Snapshot().Get(statusId)
	if !ok {
		return false
	}
	return CanDeleteStatus(status, self.identityResolver.Identity())
}

func (self *Feed) CanDeleteComment(statusId string, commentId string) bool {
	status, ok := self.store.Snapshot().Get(statusId)
	if !ok {
		return false
	}
	for _, comment := range status.Comments {
		if comment != nil && comment.Id == commentId {
			return CanDeleteComment(comment, self.identityResolver.Identity())
		}
	}
	return false
}
