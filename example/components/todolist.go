package components

import (
	"context"
	"errors"
	"strings"

	"github.com/pthm/meld"
)

// TodoList shows the tasks and adds, toggles and removes them.
type TodoList struct {
	meld.Base
	Filter   string `meld:"filter"`
	NewTitle string `meld:"new_title"`
	Todos    []Todo `meld:"todos"`
	Left     int    `meld:"left"`
}

// NewTodoList creates a TodoList showing every task.
func NewTodoList() *TodoList {
	return &TodoList{Filter: FilterAll}
}

// Mount loads the tasks for the first render.
func (c *TodoList) Mount(ctx context.Context) error {
	if store == nil {
		return errors.New("components: no store, call UseStore")
	}
	c.refresh()
	return nil
}

// Add creates a task from the new_title input.
func (c *TodoList) Add() {
	title := strings.TrimSpace(c.NewTitle)
	if title == "" {
		return
	}
	store.Add(title)
	c.NewTitle = ""
	c.refresh()
}

// Toggle flips a task between open and done.
func (c *TodoList) Toggle(id string) {
	store.Toggle(id)
	c.refresh()
}

// Remove deletes a task.
func (c *TodoList) Remove(id string) {
	store.Delete(id)
	c.refresh()
}

// Show changes the filter.
func (c *TodoList) Show(filter string) {
	switch filter {
	case FilterActive, FilterDone:
		c.Filter = filter
	default:
		c.Filter = FilterAll
	}
	c.refresh()
}

func (c *TodoList) refresh() {
	c.Todos = store.List(c.Filter)
	c.Left = len(store.List(FilterActive))
}
