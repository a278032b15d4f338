package feed

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)


// the server does not commit to one shape per record kind,
// so every field is read through an ordered fallback chain of keys.
// all functions here are pure and total: malformed input yields nil or a defaulted value.


// a decoded json object
type Record = map[string]any


const UnknownCommentAuthorName = "Unknown user"
const UnknownStatusAuthorName = "Unknown author"
const UnknownMemberName = "Unnamed"


var statusIdKeys = []string{"_id", "id", "statusId", "status_id", "uuid"}
var commentIdKeys = []string{"_id", "id", "commentId", "comment_id", "uuid"}
var userIdKeys = []string{"_id", "id", "userId", "uuid"}
var contentKeys = []string{"content", "text", "message", "body"}
var createdAtKeys = []string{"createdAt", "created_at", "timestamp"}
var authorKeys = []string{"createdBy", "author", "user"}
var commentListKeys = []string{"comment", "comments", "commentList", "replies"}
var listKeys = []string{"items", "data", "results", "statuses", "rows"}
var likedHintKeys = []string{"hasLiked", "isLiked", "liked", "viewer_has_liked"}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}


// the author of a status or comment, as far as the payload tells
type AuthorRef struct {
	Id    string
	Email string
	Name  string
	Image string
}


type StatusEntry struct {
	Id        string
	Content   string
	CreatedAt time.Time
	Author    AuthorRef
	// always set, falls back to `UnknownStatusAuthorName`
	AuthorName string
	// derived from the membership set in `Payload`. See `DeriveLikeState`
	LikeCount int
	IsLiked   bool
	Comments  []*CommentEntry
	// the server record, retained verbatim. Never mutated in place.
	Payload Record
	// created locally and not yet confirmed by the server
	Pending bool
}

func (self *StatusEntry) clone() *StatusEntry {
	next := *self
	return &next
}

func (self *StatusEntry) withComments(comments []*CommentEntry) *StatusEntry {
	next := self.clone()
	next.Comments = comments
	return next
}


type CommentEntry struct {
	Id         string
	Content    string
	AuthorName string
	Author     AuthorRef
	CreatedAt  time.Time
	Payload    Record
	Pending    bool
}

func (self *CommentEntry) clone() *CommentEntry {
	next := *self
	return &next
}


type Profile struct {
	Id             string
	Email          string
	Name           string
	FirstName      string
	LastName       string
	Image          string
	EnrollmentYear string
	Payload        Record
}

func (self *Profile) Identity() Identity {
	return Identity{
		UserId: self.Id,
		Email:  self.Email,
	}
}

// the profile's display name, or "" when it carries none
func (self *Profile) DisplayName() string {
	return ResolveAuthorName(self.Payload, "")
}


type Member struct {
	Id      string
	Name    string
	Email   string
	Image   string
	Payload Record
}


func NormalizeStatus(v any) *StatusEntry {
	r, ok := v.(Record)
	if !ok {
		return nil
	}
	id, ok := stringField(r, statusIdKeys...)
	if !ok {
		return nil
	}

	author := authorOf(r)
	authorName := author.Name
	if authorName == "" {
		authorName = UnknownStatusAuthorName
	}

	entry := &StatusEntry{
		Id:         id,
		Content:    textField(r, contentKeys...),
		CreatedAt:  timeField(r, createdAtKeys...),
		Author:     author,
		AuthorName: authorName,
		IsLiked:    likedHint(r),
		Comments:   NormalizeComments(listField(r, commentListKeys...)),
		Payload:    r,
	}
	entry.LikeCount = DeriveLikeState(entry, Identity{}).LikeCount
	return entry
}

func NormalizeStatuses(data any) []*StatusEntry {
	statuses := []*StatusEntry{}
	for _, v := range ExtractList(data) {
		if status := NormalizeStatus(v); status != nil {
			statuses = append(statuses, status)
		}
	}
	return statuses
}

func NormalizeComment(v any) *CommentEntry {
	r, ok := v.(Record)
	if !ok {
		return nil
	}
	id, ok := stringField(r, commentIdKeys...)
	if !ok {
		return nil
	}

	author := authorOf(r)
	authorName := author.Name
	if authorName == "" {
		authorName = UnknownCommentAuthorName
	}

	return &CommentEntry{
		Id:         id,
		Content:    textField(r, contentKeys...),
		AuthorName: authorName,
		Author:     author,
		CreatedAt:  timeField(r, createdAtKeys...),
		Payload:    r,
	}
}

func NormalizeComments(list []any) []*CommentEntry {
	comments := []*CommentEntry{}
	for _, v := range list {
		if comment := NormalizeComment(v); comment != nil {
			comments = append(comments, comment)
		}
	}
	return comments
}

func NormalizeProfile(v any) *Profile {
	r, ok := v.(Record)
	if !ok {
		return nil
	}
	profile := &Profile{
		Email:     emailOf(r),
		Name:      textField(r, "name"),
		FirstName: textField(r, "firstname", "firstName"),
		LastName:  textField(r, "lastname", "lastName"),
		Image:     textField(r, "image", "avatar"),
		Payload:   r,
	}
	profile.Id, _ = stringField(r, userIdKeys...)
	if education, ok := r["education"].(Record); ok {
		profile.EnrollmentYear, _ = stringField(education, "enrollmentYear", "enrollment_year")
	}
	if profile.Id == "" && profile.Email == "" {
		return nil
	}
	return profile
}

func NormalizeMember(v any) *Member {
	r, ok := v.(Record)
	if !ok {
		return nil
	}
	id, ok := stringField(r, userIdKeys...)
	if !ok {
		return nil
	}

	email := emailOf(r)
	name := ResolveAuthorName(r, "")
	if name == "" {
		name = email
	}
	if name == "" {
		name = UnknownMemberName
	}

	return &Member{
		Id:      id,
		Name:    name,
		Email:   email,
		Image:   textField(r, "image", "avatar"),
		Payload: r,
	}
}

func NormalizeMembers(data any) []*Member {
	members := []*Member{}
	for _, v := range ExtractList(data) {
		if member := NormalizeMember(v); member != nil {
			members = append(members, member)
		}
	}
	return members
}


// accepts a bare array or an object wrapping the array under one of `listKeys`
func ExtractList(data any) []any {
	switch v := data.(type) {
	case []any:
		return v
	case Record:
		for _, key := range listKeys {
			if list, ok := v[key].([]any); ok {
				return list
			}
		}
	}
	return []any{}
}

// accepts `{data: object}` or a bare object
func ExtractObject(data any) any {
	if r, ok := data.(Record); ok {
		if inner, ok := r["data"]; ok && inner != nil {
			return inner
		}
	}
	return data
}


// The display name chain for a user record:
// explicit name -> first + last -> email local part.
// `author` may be a record, a record nesting a `user` record, or an email string.
// Returns "" when nothing usable is present.
func ResolveAuthorName(author any, explicitName string) string {
	switch v := author.(type) {
	case Record:
		for _, key := range []string{"name", "username", "displayName"} {
			if name := strings.TrimSpace(textField(v, key)); name != "" {
				return name
			}
		}
		if name := strings.TrimSpace(explicitName); name != "" {
			return name
		}
		first := strings.TrimSpace(textField(v, "firstname", "firstName"))
		last := strings.TrimSpace(textField(v, "lastname", "lastName"))
		if first != "" || last != "" {
			return strings.TrimSpace(first + " " + last)
		}
		if local := emailLocalPart(emailOf(v)); local != "" {
			return local
		}
		if user, ok := v["user"].(Record); ok {
			return ResolveAuthorName(user, "")
		}
	case string:
		if name := strings.TrimSpace(explicitName); name != "" {
			return name
		}
		return emailLocalPart(v)
	default:
		return strings.TrimSpace(explicitName)
	}
	return ""
}

func emailLocalPart(email string) string {
	if i := strings.Index(email, "@"); 0 < i {
		return email[:i]
	}
	return ""
}


func authorOf(r Record) AuthorRef {
	explicitName := textField(r, "authorName")
	for _, key := range authorKeys {
		if v, ok := r[key]; ok && v != nil {
			author := authorRefOf(v)
			author.Name = ResolveAuthorName(v, explicitName)
			return author
		}
	}
	return AuthorRef{
		Name: strings.TrimSpace(explicitName),
	}
}

func authorRefOf(v any) AuthorRef {
	switch t := v.(type) {
	case Record:
		author := AuthorRef{
			Email: emailOf(t),
			Image: textField(t, "image", "avatar"),
		}
		author.Id, _ = stringField(t, userIdKeys...)
		if author.Id == "" && author.Email == "" {
			if user, ok := t["user"].(Record); ok {
				return authorRefOf(user)
			}
		}
		return author
	case string:
		if strings.Contains(t, "@") {
			return AuthorRef{Email: t}
		}
		return AuthorRef{Id: t}
	default:
		if id, ok := stringOf(v); ok {
			return AuthorRef{Id: id}
		}
	}
	return AuthorRef{}
}

func emailOf(r Record) string {
	if email, ok := r["email"].(string); ok && email != "" {
		return email
	}
	if contact, ok := r["contact"].(Record); ok {
		if email, ok := contact["email"].(string); ok {
			return email
		}
	}
	return ""
}

func likedHint(r Record) bool {
	liked, _ := likedHintOf(r)
	return liked
}

func likedHintOf(r Record) (bool, bool) {
	for _, key := range likedHintKeys {
		if liked, ok := r[key].(bool); ok {
			return liked, true
		}
	}
	return false, false
}


// first key holding a usable id-like value. Empty strings are not usable.
func stringField(r Record, keys ...string) (string, bool) {
	for _, key := range keys {
		if v, ok := r[key]; ok && v != nil {
			if s, ok := stringOf(v); ok {
				return s, true
			}
		}
	}
	return "", false
}

// first non-null key, rendered as text. Non-text values default to ""
func textField(r Record, keys ...string) string {
	for _, key := range keys {
		if v, ok := r[key]; ok && v != nil {
			s, _ := stringOf(v)
			return s
		}
	}
	return ""
}

func listField(r Record, keys ...string) []any {
	for _, key := range keys {
		if list, ok := r[key].([]any); ok && 0 < len(list) {
			return list
		}
	}
	return nil
}

func timeField(r Record, keys ...string) time.Time {
	for _, key := range keys {
		if v, ok := r[key]; ok && v != nil {
			return ParseTimestamp(v)
		}
	}
	return time.Time{}
}

func numberField(r Record, keys ...string) (float64, bool) {
	for _, key := range keys {
		if n, ok := numberOf(r[key]); ok {
			return n, true
		}
	}
	return 0, false
}


// Accepts rfc3339 variants, naive date-times (read as UTC), dates,
// and epoch numbers in seconds or milliseconds.
// Returns the zero time when the value cannot be read.
func ParseTimestamp(v any) time.Time {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed
			}
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return epochTime(n)
		}
	default:
		if n, ok := numberOf(v); ok {
			return epochTime(n)
		}
	}
	return time.Time{}
}

func epochTime(n float64) time.Time {
	if n <= 0 {
		return time.Time{}
	}
	if 1e12 < n {
		return time.UnixMilli(int64(n)).UTC()
	}
	return time.Unix(int64(n), 0).UTC()
}


func stringOf(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, t != ""
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	default:
		return "", false
	}
}

func numberOf(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Float64()
		return n, err == nil
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}
