package feed

import (
	"golang.org/x/exp/maps"
)


// Folds a server copy of a status into the local one.
// The payloads are merged key by key with the server winning, the like roster goes through
// `MergeLikeArrays` with `intent`, and comment author names are carried over.
// Every input is read fresh, so applying a stale confirmation late gives the same result.
func ReconcileServerStatus(local *StatusEntry, server *StatusEntry, identity Identity, intent LikeIntent) *StatusEntry {
	if local == nil {
		return BackfillComments(ReconcileLikeState(server, identity))
	}

	payload := Record{}
	if local.Payload != nil {
		payload = maps.Clone(local.Payload)
	}
	for key, value := range server.Payload {
		payload[key] = value
	}

	next := server.clone()
	next.Payload = payload
	next.Comments = MergeComments(local.Comments, server.Comments)
	// the server copy's hint is a default more often than not
	next.IsLiked = local.IsLiked

	localMembers, localOk := LikeMembers(local.Payload)
	serverMembers, serverOk := LikeMembers(server.Payload)
	if localOk || serverOk {
		next = WithLikeMembers(next, MergeLikeArrays(localMembers, serverMembers, identity, intent))
	} else if liked, ok := likedHintOf(server.Payload); ok {
		next.IsLiked = liked
	}

	state := DeriveLikeState(next, identity)
	next.LikeCount = state.LikeCount
	next.IsLiked = state.IsLiked
	if identity.IsEmpty() && intent != LikeIntentNone {
		// documented compromise: the intent wins over a roster we cannot read
		next.IsLiked = intent == LikeIntentLike
	}
	return BackfillComments(next)
}
