// Package components holds the demo application's meld components.
//
//go:generate go run github.com/pthm/meld/cmd/meld generate .
package components

import "time"

// Todo is one task.
type Todo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"created_at"`
}

// TodoStore is the storage used by the todo components.
type TodoStore interface {
	Add(title string) Todo
	Toggle(id string) bool
	Delete(id string) bool
	List(filter string) []Todo
}

// Filters accepted by TodoStore.List.
const (
	FilterAll    = "all"
	FilterActive = "active"
	FilterDone   = "done"
)

var store TodoStore

// UseStore sets the store the components read and write. Call it before
// registering the components.
func UseStore(s TodoStore) {
	store = s
}
