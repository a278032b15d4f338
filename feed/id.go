package feed

import (
	"strings"

	"github.com/oklog/ulid/v2"
)


// ids for entries created locally before the server assigns one
const LocalIdPrefix = "local-"


// comparable
type Id [16]byte

func NewId() Id {
	return Id(ulid.Make())
}

func (self Id) String() string {
	return ulid.ULID(self).String()
}


// ulids are ordered by create time, so local ids sort in the order they were issued
func NewLocalId() string {
	return LocalIdPrefix + NewId().String()
}

func IsLocalId(id string) bool {
	return strings.HasPrefix(id, LocalIdPrefix)
}
