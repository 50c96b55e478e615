package models

// Collection names a top-level store key holding a JSON array.
type Collection string

const (
	CollectionUsers      Collection = "all_users"
	CollectionClassrooms Collection = "all_classrooms"
	CollectionGrades     Collection = "all_grades"

	// UserKeyPrefix is concatenated with a wallet address to form the per-user key.
	UserKeyPrefix = "user_"
)

// Collections lists every collection key.
var Collections = []Collection{CollectionUsers, CollectionClassrooms, CollectionGrades}

// UserKey returns the store key for one wallet's user record.
func UserKey(wallet string) string {
	return UserKeyPrefix + wallet
}

// StoreEntry is one raw key/value pair as seen by the debug console.
type StoreEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Size  int    `json:"size"`
}
