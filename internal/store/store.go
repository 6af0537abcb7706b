// Package store holds the per-room ordered document collections that back
// a chat room, with in-memory, Redis and Pebble backends.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store closed")

// ErrNoKey is returned when a document is written without an idempotency key.
var ErrNoKey = errors.New("document key required")

// Document is one stored chat message.
type Document struct {
	Key       string    `json:"key"`
	Text      string    `json:"text"`
	IsUser    bool      `json:"isUser"`
	Timestamp time.Time `json:"timestamp"`
	Reactions []string  `json:"reactions"`
	Kind      string    `json:"kind,omitempty"`
	Mood      string    `json:"mood,omitempty"`
}

// Event is one delivery from Watch: a full ordered snapshot, or a terminal error.
type Event struct {
	Docs []Document
	Err  error
}

// Store is a set of rooms, each an ordered collection of documents.
type Store interface {
	// Watch delivers the room's full snapshot now and after every change.
	// A consumer that falls behind only sees the latest snapshot. After an
	// Event with Err set the channel is closed. Canceling ctx closes it too.
	Watch(ctx context.Context, room string) (<-chan Event, error)
	// List returns the room's documents ascending by Timestamp, then Key.
	List(ctx context.Context, room string) ([]Document, error)
	// Add writes a new document. Adding an existing key is a no-op.
	Add(ctx context.Context, room string, doc Document) error
	// Delete removes the document with the given key, if present.
	Delete(ctx context.Context, room, key string) error
	Close() error
}

// Kinds of backend accepted by Open.
const (
	KindMemory = "memory"
	KindRedis  = "redis"
	KindPebble = "pebble"
)

// Options selects and configures a backend.
type Options struct {
	Kind          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	PebblePath    string
}

// Open creates the backend named by opts.Kind.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch opts.Kind {
	case KindMemory:
		return NewMemory(), nil
	case KindRedis:
		s, err := DialRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, logger)
		if err != nil {
			return nil, fmt.Errorf("store.Open: %w", err)
		}
		return s, nil
	case KindPebble, "":
		s, err := OpenPebble(opts.PebblePath, logger)
		if err != nil {
			return nil, fmt.Errorf("store.Open: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("store.Open: unknown store kind %q", opts.Kind)
	}
}

// prepare fills defaults before a document is written.
func prepare(doc Document) (Document, error) {
	if doc.Key == "" {
		return doc, ErrNoKey
	}
	if doc.Timestamp.IsZero() {
		doc.Timestamp = time.Now()
	}
	doc.Timestamp = doc.Timestamp.UTC()
	if doc.Reactions == nil {
		doc.Reactions = []string{}
	}
	return doc, nil
}

func sortDocs(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if !docs[i].Timestamp.Equal(docs[j].Timestamp) {
			return docs[i].Timestamp.Before(docs[j].Timestamp)
		}
		return docs[i].Key < docs[j].Key
	})
}

// waitFunc blocks until the watched room changes. A non-nil error ends the watch.
type waitFunc func(ctx context.Context) error

// runWatch lists the room, delivers the snapshot and waits for the next
// change, until ctx is canceled or either step fails.
func runWatch(ctx context.Context, list func(context.Context) ([]Document, error), wait waitFunc, out chan Event, cleanup func()) {
	defer close(out)
	if cleanup != nil {
		defer cleanup()
	}
	for {
		docs, err := list(ctx)
		if err != nil {
			if ctx.Err() == nil {
				deliver(out, Event{Err: err})
			}
			return
		}
		deliver(out, Event{Docs: docs})
		if err := wait(ctx); err != nil {
			if ctx.Err() == nil {
				deliver(out, Event{Err: err})
			}
			return
		}
	}
}

// deliver replaces any undelivered event in out with ev. out has capacity 1
// and a single sender.
func deliver(out chan Event, ev Event) {
	for {
		select {
		case out <- ev:
			return
		default:
		}
		select {
		case <-out:
		default:
		}
	}
}
