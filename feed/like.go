package feed

import (
	"encoding/json"
	"fmt"
	"slices"

	"golang.org/x/exp/maps"
)


// keys the like roster may be stored under. New rosters are stored under the first.
var likeMembershipKeys = []string{"like", "likes", "likedBy"}

var likeCountKeys = []string{"likeCount", "likesCount", "like", "likes"}


type LikeIntent int

const (
	LikeIntentNone LikeIntent = iota
	LikeIntentLike
	LikeIntentUnlike
)

func LikeIntentOf(like bool) LikeIntent {
	if like {
		return LikeIntentLike
	}
	return LikeIntentUnlike
}

func (self LikeIntent) String() string {
	switch self {
	case LikeIntentLike:
		return "like"
	case LikeIntentUnlike:
		return "unlike"
	default:
		return "none"
	}
}


type LikeState struct {
	LikeCount int
	IsLiked   bool
}


// A membership entry resolved to a comparable form.
// Entries are either a bare id (string or number) or a record with optional id and email.
type UserRef struct {
	Id    string
	Email string
	// neither id nor email. Compared structurally by `Key`
	Opaque bool
	// equal keys mean the same logical user
	Key string
}

func ResolveUserRef(v any) UserRef {
	switch t := v.(type) {
	case Record:
		ref := UserRef{
			Email: emailOf(t),
		}
		ref.Id, _ = stringField(t, "_id", "id", "userId")
		switch {
		case ref.Id != "":
			ref.Key = fmt.Sprintf("id:%s", ref.Id)
		case ref.Email != "":
			ref.Key = fmt.Sprintf("email:%s", ref.Email)
		default:
			ref.Opaque = true
			ref.Key = rawKey(t)
		}
		return ref
	default:
		if id, ok := stringOf(v); ok {
			return UserRef{
				Id:  id,
				Key: fmt.Sprintf("id:%s", id),
			}
		}
		return UserRef{
			Opaque: true,
			Key:    rawKey(v),
		}
	}
}

// json encoding sorts map keys, which makes this canonical for decoded json values
func rawKey(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("raw:%v", v)
	}
	return fmt.Sprintf("raw:%s", b)
}

// id first, else email
func (self UserRef) Matches(identity Identity) bool {
	if identity.UserId != "" && self.Id != "" && self.Id == identity.UserId {
		return true
	}
	if identity.Email != "" && self.Email != "" && self.Email == identity.Email {
		return true
	}
	return false
}


func LikeMembers(payload Record) ([]any, bool) {
	_, members, ok := likeMembership(payload)
	return members, ok
}

func likeMembership(payload Record) (string, []any, bool) {
	for _, key := range likeMembershipKeys {
		if members, ok := payload[key].([]any); ok {
			return key, members, true
		}
	}
	return likeMembershipKeys[0], nil, false
}

// server count fields, used only when the payload carries no roster
func likeCountFallback(payload Record) int {
	if n, ok := numberField(payload, likeCountKeys...); ok {
		return int(n)
	}
	if reactions, ok := payload["reactions"].(Record); ok {
		if n, ok := numberOf(reactions["like"]); ok {
			return int(n)
		}
	}
	return 0
}


// keeps the first entry for each logical user
func DedupeMembers(members []any) []any {
	seen := map[string]bool{}
	out := make([]any, 0, len(members))
	for _, member := range members {
		key := ResolveUserRef(member).Key
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, member)
	}
	return out
}

func HasMember(members []any, identity Identity) bool {
	if identity.IsEmpty() {
		return false
	}
	for _, member := range members {
		if ResolveUserRef(member).Matches(identity) {
			return true
		}
	}
	return false
}

func RemoveMember(members []any, identity Identity) []any {
	out := make([]any, 0, len(members))
	for _, member := range members {
		if !ResolveUserRef(member).Matches(identity) {
			out = append(out, member)
		}
	}
	return out
}

// the entry appended for the viewer. An id is preferred, since that is the server's own shape.
// With nothing known this is an anonymous marker `{}` that only moves the count.
func SyntheticMember(identity Identity) any {
	if identity.UserId != "" {
		return identity.UserId
	}
	if identity.Email != "" {
		return Record{"email": identity.Email}
	}
	return Record{}
}

func isAnonymousMarker(member any) bool {
	r, ok := member.(Record)
	return ok && len(r) == 0
}


// Anonymous markers are left by likes made while the viewer was unknown.
// Once the viewer is known the first marker becomes the viewer's entry, unless the viewer is
// already in the roster, and the rest are dropped. Returns `entry` itself when there are none.
func ClaimAnonymousLikes(entry *StatusEntry, identity Identity) *StatusEntry {
	if identity.IsEmpty() {
		return entry
	}
	members, ok := LikeMembers(entry.Payload)
	if !ok || !slices.ContainsFunc(members, isAnonymousMarker) {
		return entry
	}
	viewerPresent := HasMember(members, identity)
	nextMembers := make([]any, 0, len(members))
	for _, member := range members {
		if isAnonymousMarker(member) {
			if !viewerPresent {
				nextMembers = append(nextMembers, SyntheticMember(identity))
				viewerPresent = true
			}
			continue
		}
		nextMembers = append(nextMembers, member)
	}
	return WithLikeMembers(entry, nextMembers)
}


// `LikeCount` is the deduplicated roster size.
// `IsLiked` is recomputed only when the roster is present and the identity is not empty,
// otherwise the entry's previous value is kept.
func DeriveLikeState(entry *StatusEntry, identity Identity) LikeState {
	members, ok := LikeMembers(entry.Payload)
	if !ok {
		return LikeState{
			LikeCount: likeCountFallback(entry.Payload),
			IsLiked:   entry.IsLiked,
		}
	}
	members = DedupeMembers(members)
	isLiked := entry.IsLiked
	if !identity.IsEmpty() {
		isLiked = HasMember(members, identity)
	}
	return LikeState{
		LikeCount: len(members),
		IsLiked:   isLiked,
	}
}

// returns `entry` itself when nothing changed
func ReconcileLikeState(entry *StatusEntry, identity Identity) *StatusEntry {
	state := DeriveLikeState(entry, identity)
	if state.LikeCount == entry.LikeCount && state.IsLiked == entry.IsLiked {
		return entry
	}
	next := entry.clone()
	next.LikeCount = state.LikeCount
	next.IsLiked = state.IsLiked
	return next
}

// copies the entry and its payload, storing `members` as the roster
func WithLikeMembers(entry *StatusEntry, members []any) *StatusEntry {
	key, _, _ := likeMembership(entry.Payload)
	var payload Record
	if entry.Payload == nil {
		payload = Record{}
	} else {
		payload = maps.Clone(entry.Payload)
	}
	payload[key] = members
	next := entry.clone()
	next.Payload = payload
	return next
}


// The locally predicted entry after a like or unlike by `identity`.
// The roster is edited and the derived state recomputed from it.
// When the identity is empty `IsLiked` is set to the intent, since it cannot be derived.
// A payload without a roster only has its count moved.
func OptimisticLike(entry *StatusEntry, identity Identity, intent LikeIntent) *StatusEntry {
	members, ok := LikeMembers(entry.Payload)
	if !ok {
		next := entry.clone()
		switch intent {
		case LikeIntentLike:
			if !entry.IsLiked {
				next.LikeCount += 1
			}
			next.IsLiked = true
		case LikeIntentUnlike:
			if entry.IsLiked && 0 < next.LikeCount {
				next.LikeCount -= 1
			}
			next.IsLiked = false
		}
		return next
	}

	nextMembers := make([]any, len(members))
	copy(nextMembers, members)
	switch intent {
	case LikeIntentLike:
		if identity.IsEmpty() {
			if !entry.IsLiked {
				nextMembers = append(nextMembers, SyntheticMember(identity))
			}
		} else if !HasMember(nextMembers, identity) {
			nextMembers = append(nextMembers, SyntheticMember(identity))
		}
	case LikeIntentUnlike:
		if identity.IsEmpty() {
			for i := len(nextMembers) - 1; 0 <= i; i -= 1 {
				if isAnonymousMarker(nextMembers[i]) {
					nextMembers = append(nextMembers[:i:i], nextMembers[i+1:]...)
					break
				}
			}
		} else {
			nextMembers = RemoveMember(nextMembers, identity)
		}
	}

	next := WithLikeMembers(entry, nextMembers)
	if identity.IsEmpty() && intent != LikeIntentNone {
		next.IsLiked = intent == LikeIntentLike
	}
	state := DeriveLikeState(next, identity)
	next.LikeCount = state.LikeCount
	next.IsLiked = state.IsLiked
	return next
}


// Merges a server roster with the locally predicted one.
// The server roster is the base when it has entries, else the local one. The base is deduplicated.
// With a known identity the intent is applied to the base (viewer added for like, removed for unlike).
// With an unknown identity the base is left as is; callers force `IsLiked` to the intent instead,
// because the server roster cannot be interpreted without knowing who the viewer is.
func MergeLikeArrays(prev []any, next []any, identity Identity, intent LikeIntent) []any {
	var base []any
	if 0 < len(next) {
		base = next
	} else {
		base = prev
	}
	base = DedupeMembers(base)

	if !identity.IsEmpty() {
		switch intent {
		case LikeIntentLike:
			if !HasMember(base, identity) {
				base = append(base, SyntheticMember(identity))
			}
		case LikeIntentUnlike:
			base = RemoveMember(base, identity)
		}
	}
	return DedupeMembers(base)
}
