package querycache

import (
	"net/url"
	"strconv"
	"strings"
)

// EntityTranscriptions tags every key that caches transcription data
const EntityTranscriptions = "transcriptions"

// View tags. Nested views use "/" so a prefix on "list" reaches them.
const (
	ViewList     = "list"
	ViewInfinite = "list/infinite"
	ViewSearch   = "list/search"
	ViewDetail   = "detail"
)

// Key identifies one cached query. Keys are compared by their canonical
// string, so two keys built from the same filter values are always equal.
type Key struct {
	Entity string
	View   string
	Params map[string]string
}

// All matches every transcription query
func All() Key {
	return Key{Entity: EntityTranscriptions}
}

// Lists matches every list view, including infinite and search lists
func Lists() Key {
	return Key{Entity: EntityTranscriptions, View: ViewList}
}

// List is one offset page of the history
func List(limit, offset int) Key {
	return Key{Entity: EntityTranscriptions, View: ViewList, Params: map[string]string{
		"limit":  strconv.Itoa(limit),
		"offset": strconv.Itoa(offset),
	}}
}

// Infinite is the infinite-scroll history for a page size
func Infinite(limit int) Key {
	return Key{Entity: EntityTranscriptions, View: ViewInfinite, Params: map[string]string{
		"limit": strconv.Itoa(limit),
	}}
}

// Search is one page of server-side search results
func Search(term string, limit, offset int) Key {
	return Key{Entity: EntityTranscriptions, View: ViewSearch, Params: map[string]string{
		"q":      term,
		"limit":  strconv.Itoa(limit),
		"offset": strconv.Itoa(offset),
	}}
}

// Details matches every detail view
func Details() Key {
	return Key{Entity: EntityTranscriptions, View: ViewDetail}
}

// Detail is a single transcription
func Detail(id string) Key {
	return Key{Entity: EntityTranscriptions, View: ViewDetail, Params: map[string]string{"id": id}}
}

// Health is the backend reachability probe
func Health() Key {
	return Key{Entity: "health"}
}

// String renders the canonical form, e.g. "transcriptions/list?limit=20&offset=0".
// Params are sorted by name.
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(k.Entity)
	if k.View != "" {
		b.WriteByte('/')
		b.WriteString(k.View)
	}
	if len(k.Params) > 0 {
		values := url.Values{}
		for name, v := range k.Params {
			values.Set(name, v)
		}
		b.WriteByte('?')
		b.WriteString(values.Encode())
	}
	return b.String()
}

// HasPrefix reports whether prefix addresses k: same entity, a view equal to
// or a parent of k's view, and every prefix param present in k with the same value.
func (k Key) HasPrefix(prefix Key) bool {
	if k.Entity != prefix.Entity {
		return false
	}
	if prefix.View != "" && k.View != prefix.View && !strings.HasPrefix(k.View, prefix.View+"/") {
		return false
	}
	for name, v := range prefix.Params {
		if got, ok := k.Params[name]; !ok || got != v {
			return false
		}
	}
	return true
}
