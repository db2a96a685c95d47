package main

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pthm/meld/example/components"
)

// Store is an in-memory todo store that implements components.TodoStore.
type Store struct {
	mu     sync.RWMutex
	todos  map[string]*components.Todo
	nextID int
}

// NewStore creates a new store with sample data.
func NewStore() *Store {
	s := &Store{
		todos:  make(map[string]*components.Todo),
		nextID: 1,
	}

	s.Add("Buy groceries")
	s.Add("Review PR #123")
	s.Add("Write documentation")

	return s
}

// Add creates a new todo.
func (s *Store) Add(title string) components.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := fmt.Sprintf("todo-%d", s.nextID)
	s.nextID++

	todo := &components.Todo{
		ID:        id,
		Title:     title,
		CreatedAt: time.Now(),
	}
	s.todos[id] = todo
	return *todo
}

// Toggle toggles the completed status of a todo.
func (s *Store) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	todo, ok := s.todos[id]
	if !ok {
		return false
	}
	todo.Done = !todo.Done
	return true
}

// Delete removes a todo by ID.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.todos[id]; !ok {
		return false
	}
	delete(s.todos, id)
	return true
}

// List returns the todos matching filter, oldest first.
func (s *Store) List(filter string) []components.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]components.Todo, 0, len(s.todos))
	for _, todo := range s.todos {
		switch {
		case filter == components.FilterActive && todo.Done:
			continue
		case filter == components.FilterDone && !todo.Done:
			continue
		}
		result = append(result, *todo)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}
