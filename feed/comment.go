package feed


// comment author names are resolved once and then kept,
// unless the name is still the placeholder


func IsPlaceholderAuthorName(name string) bool {
	return name == "" || name == UnknownCommentAuthorName
}

// the author name chain applied to a comment's own payload
func commentPayloadAuthorName(payload Record) string {
	if payload == nil {
		return ""
	}
	return authorOf(payload).Name
}

// raw comment records attached to the status payload, by comment id
func rawCommentsById(payload Record) map[string]Record {
	out := map[string]Record{}
	for _, v := range listField(payload, commentListKeys...) {
		if r, ok := v.(Record); ok {
			if id, ok := stringField(r, commentIdKeys...); ok {
				out[id] = r
			}
		}
	}
	return out
}


// Upgrades placeholder comment author names from the comment's own payload,
// else from the parent status' raw comment list matched by comment id.
// Non-placeholder names are never touched. Returns `status` itself when nothing changed,
// so a second pass with the same inputs is a no-op.
func BackfillComments(status *StatusEntry) *StatusEntry {
	if len(status.Comments) == 0 {
		return status
	}

	var rawComments map[string]Record
	changed := false
	comments := make([]*CommentEntry, len(status.Comments))
	for i, comment := range status.Comments {
		comments[i] = comment
		if comment == nil || !IsPlaceholderAuthorName(comment.AuthorName) {
			continue
		}

		name := commentPayloadAuthorName(comment.Payload)
		if name == "" {
			if rawComments == nil {
				rawComments = rawCommentsById(status.Payload)
			}
			if raw, ok := rawComments[comment.Id]; ok {
				name = commentPayloadAuthorName(raw)
			}
		}
		if name == "" || name == comment.AuthorName {
			continue
		}

		next := comment.clone()
		next.AuthorName = name
		comments[i] = next
		changed = true
	}

	if !changed {
		return status
	}
	return status.withComments(comments)
}


// Carries resolved author names from a previous copy of a status' comments
// into a fresh server copy. Names are upgraded, never downgraded.
// Comments only present in `prev` (e.g. pending local comments) are dropped.
func MergeComments(prev []*CommentEntry, next []*CommentEntry) []*CommentEntry {
	if len(prev) == 0 {
		return next
	}
	prevById := map[string]*CommentEntry{}
	for _, comment := range prev {
		if comment != nil {
			prevById[comment.Id] = comment
		}
	}

	merged := make([]*CommentEntry, len(next))
	for i, comment := range next {
		merged[i] = comment
		if comment == nil || !IsPlaceholderAuthorName(comment.AuthorName) {
			continue
		}
		prevComment, ok := prevById[comment.Id]
		if !ok {
			continue
		}
		name := prevComment.AuthorName
		if IsPlaceholderAuthorName(name) {
			name = commentPayloadAuthorName(prevComment.Payload)
		}
		if name != "" && !IsPlaceholderAuthorName(name) {
			upgraded := comment.clone()
			upgraded.AuthorName = name
			merged[i] = upgraded
		}
	}
	return merged
}


func CanDeleteComment(comment *CommentEntry, identity Identity) bool {
	if comment == nil || comment.Pending {
		return false
	}
	return identity.MatchesAuthor(comment.Author)
}

func CanDeleteStatus(status *StatusEntry, identity Identity) bool {
	if status == nil || status.Pending {
		return false
	}
	return identity.MatchesAuthor(status.Author)
}
