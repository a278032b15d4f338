package feed

import (
	"errors"
	"fmt"
)


var ErrMutationPending = errors.New("A change to this post is still in progress.")
var ErrStatusNotFound = errors.New("Post not found.")
var ErrCommentNotFound = errors.New("Comment not found.")
var ErrEmptyContent = errors.New("Content is empty.")


type MutationOp string

const (
	MutationOpLike          MutationOp = "like the post"
	MutationOpUnlike        MutationOp = "unlike the post"
	MutationOpCreateStatus  MutationOp = "publish the post"
	MutationOpDeleteStatus  MutationOp = "delete the post"
	MutationOpAddComment    MutationOp = "add the comment"
	MutationOpRemoveComment MutationOp = "delete the comment"
)

func likeMutationOp(intent LikeIntent) MutationOp {
	if intent == LikeIntentUnlike {
		return MutationOpUnlike
	}
	return MutationOpLike
}


// A remote mutation failed and the local change was rolled back.
type MutationError struct {
	Op       MutationOp
	StatusId string
	Err      error
}

func (self *MutationError) Error() string {
	return fmt.Sprintf("Could not %s: %s", self.Op, self.Err)
}

func (self *MutationError) Unwrap() error {
	return self.Err
}
