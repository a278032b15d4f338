package feed

import (
	"context"
	"errors"
	"strings"
	"sync"
)


var ErrNoYear = errors.New("No enrollment year.")


// The classmates of one cohort year.
type MemberDirectory struct {
	api FeedApi
	log LogFunction

	stateLock sync.Mutex
	year      string
}

func NewMemberDirectory(api FeedApi) *MemberDirectory {
	return &MemberDirectory{
		api: api,
		log: LogFn(LogLevelInfo, "members"),
	}
}

func (self *MemberDirectory) LoadSync(ctx context.Context, year string) ([]*Member, error) {
	year = strings.TrimSpace(year)
	if year == "" {
		return nil, ErrNoYear
	}
	members, err := self.api.ListMembers(ctx, year)
	if err != nil {
		self.log("[%s]Could not list members = %s", year, err)
		return nil, err
	}

	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	self.year = year
	return members, nil
}

// the viewer's own enrollment year, from the profile
func (self *MemberDirectory) DefaultYearSync(ctx context.Context) (string, error) {
	profile, err := self.api.GetProfile(ctx)
	if err != nil {
		return "", err
	}
	if profile == nil || profile.EnrollmentYear == "" {
		return "", ErrNoYear
	}
	return profile.EnrollmentYear, nil
}

// loads the viewer's own cohort
func (self *MemberDirectory) LoadDefaultSync(ctx context.Context) ([]*Member, error) {
	year, err := self.DefaultYearSync(ctx)
	if err != nil {
		return nil, err
	}
	return self.LoadSync(ctx, year)
}

func (self *MemberDirectory) Year() string {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.year
}
