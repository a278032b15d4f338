package feed

import (
	"sync"
)


// Who the viewer is, as far as is known.
// Fields are only ever added. See `Merge`.
type Identity struct {
	UserId string
	Email  string
}

func (self Identity) IsEmpty() bool {
	return self.UserId == "" && self.Email == ""
}

// known fields of `update` win; unknown fields keep the current value
func (self Identity) Merge(update Identity) Identity {
	merged := self
	if update.UserId != "" {
		merged.UserId = update.UserId
	}
	if update.Email != "" {
		merged.Email = update.Email
	}
	return merged
}

// id first, then email
func (self Identity) MatchesAuthor(author AuthorRef) bool {
	if self.UserId != "" && author.Id != "" && self.UserId == author.Id {
		return true
	}
	if self.Email != "" && author.Email != "" && self.Email == author.Email {
		return true
	}
	return false
}


type IdentityChangeFunction = func(identity Identity)


// Combines the credential fast path and the authoritative profile into one identity.
// Sources may complete in any order; the merge is monotonic.
type IdentityResolver struct {
	stateLock sync.Mutex
	identity  Identity

	identityChangeCallbacks *CallbackList[IdentityChangeFunction]
}

func NewIdentityResolver() *IdentityResolver {
	return &IdentityResolver{
		identityChangeCallbacks: NewCallbackList[IdentityChangeFunction](),
	}
}

func (self *IdentityResolver) Identity() Identity {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.identity
}

func (self *IdentityResolver) AddIdentityChangeCallback(identityChangeCallback IdentityChangeFunction) func() {
	callbackId := self.identityChangeCallbacks.Add(identityChangeCallback)
	return func() {
		self.identityChangeCallbacks.Remove(callbackId)
	}
}

// fast path
func (self *IdentityResolver) ApplyCredential(jwt string) bool {
	return self.Merge(IdentityFromJwt(jwt))
}

// authoritative path. A nil profile (failed fetch) leaves the identity unchanged.
func (self *IdentityResolver) ApplyProfile(profile *Profile) bool {
	if profile == nil {
		return false
	}
	return self.Merge(profile.Identity())
}

// returns true when the identity changed. Callbacks run outside the state lock.
func (self *IdentityResolver) Merge(update Identity) bool {
	var identity Identity
	changed := func() bool {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		next := self.identity.Merge(update)
		if next == self.identity {
			return false
		}
		self.identity = next
		identity = next
		return true
	}()

	if changed {
		for _, identityChangeCallback := range self.identityChangeCallbacks.Get() {
			HandleError(func() {
				identityChangeCallback(identity)
			})
		}
	}
	return changed
}
