package feed


// async variants of the feed operations report through a callback,
// invoked once from the goroutine that ran the operation


type FeedCallback[R any] interface {
	Result(result R, err error)
}


type simpleFeedCallback[R any] struct {
	callback func(result R, err error)
}

func NewFeedCallback[R any](callback func(result R, err error)) FeedCallback[R] {
	return &simpleFeedCallback[R]{
		callback: callback,
	}
}

func (self *simpleFeedCallback[R]) Result(result R, err error) {
	self.callback(result, err)
}


type FeedCallbackResult[R any] struct {
	Result R
	Error  error
}

func NewBlockingFeedCallback[R any]() (FeedCallback[R], chan FeedCallbackResult[R]) {
	c := make(chan FeedCallbackResult[R], 1)
	callback := NewFeedCallback[R](func(result R, err error) {
		c <- FeedCallbackResult[R]{
			Result: result,
			Error:  err,
		}
	})
	return callback, c
}


type StatusCallback = FeedCallback[*StatusEntry]
type SnapshotCallback = FeedCallback[*FeedSnapshot]
