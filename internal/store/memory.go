package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	rooms map[string]map[string]Document
	hub   *hub
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		rooms: make(map[string]map[string]Document),
		hub:   newHub(),
	}
}

func (m *Memory) Watch(ctx context.Context, room string) (<-chan Event, error) {
	if m.hub.isClosed() {
		return nil, ErrClosed
	}
	wait, cancel := m.hub.subscribe(room)
	out := make(chan Event, 1)
	go runWatch(ctx, func(ctx context.Context) ([]Document, error) {
		return m.List(ctx, room)
	}, wait, out, cancel)
	return out, nil
}

func (m *Memory) List(ctx context.Context, room string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.hub.isClosed() {
		return nil, ErrClosed
	}
	m.mu.RLock()
	docs := make([]Document, 0, len(m.rooms[room]))
	for _, d := range m.rooms[room] {
		d.Reactions = append([]string(nil), d.Reactions...)
		docs = append(docs, d)
	}
	m.mu.RUnlock()
	sortDocs(docs)
	return docs, nil
}

func (m *Memory) Add(ctx context.Context, room string, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.hub.isClosed() {
		return ErrClosed
	}
	doc, err := prepare(doc)
	if err != nil {
		return err
	}
	m.mu.Lock()
	if m.rooms[room] == nil {
		m.rooms[room] = make(map[string]Document)
	}
	if _, exists := m.rooms[room][doc.Key]; exists {
		m.mu.Unlock()
		return nil
	}
	doc.Reactions = append([]string{}, doc.Reactions...)
	m.rooms[room][doc.Key] = doc
	m.mu.Unlock()
	m.hub.notify(room)
	return nil
}

func (m *Memory) Delete(ctx context.Context, room, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.hub.isClosed() {
		return ErrClosed
	}
	m.mu.Lock()
	_, exists := m.rooms[room][key]
	delete(m.rooms[room], key)
	m.mu.Unlock()
	if exists {
		m.hub.notify(room)
	}
	return nil
}

// Len returns the number of documents in room.
func (m *Memory) Len(room string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[room])
}

func (m *Memory) Close() error {
	m.hub.close()
	return nil
}
