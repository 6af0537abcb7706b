package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"
)

// Pebble is a durable single-process Store on a local Pebble database.
//
// Key layout:
//
//	room:<id>:msg:<unix nano, 20 digits>-<key>  -> document JSON
//	room:<id>:key:<key>                         -> message key
type Pebble struct {
	db     *pebble.DB
	hub    *hub
	logger *zap.Logger

	// cmu keeps the database open for the duration of an operation.
	cmu sync.RWMutex
	// wmu serializes the existence check and write in Add and Delete.
	wmu sync.Mutex
}

// OpenPebble opens or creates the database directory at path.
func OpenPebble(path string, logger *zap.Logger) (*Pebble, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		return nil, errors.New("pebble path required")
	}
	if err := os.MkdirAll(path, 0o700); err != nil {
		return nil, fmt.Errorf("create pebble dir: %w", err)
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble %s: %w", path, err)
	}
	logger.Info("pebble_opened", zap.String("path", path))
	return &Pebble{db: db, hub: newHub(), logger: logger}, nil
}

// roomSegment length-prefixes the room ID so no room's key range can
// contain another room's keys.
func roomSegment(room string) string {
	return fmt.Sprintf("room:%d:%s", len(room), room)
}

func msgPrefix(room string) []byte {
	return []byte(roomSegment(room) + ":msg:")
}

func msgKey(room string, doc Document) []byte {
	return []byte(fmt.Sprintf("%s:msg:%020d-%s", roomSegment(room), doc.Timestamp.UnixNano(), doc.Key))
}

func indexKey(room, key string) []byte {
	return []byte(roomSegment(room) + ":key:" + key)
}

// prefixUpperBound returns the smallest key greater than every key with prefix.
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func (p *Pebble) Watch(ctx context.Context, room string) (<-chan Event, error) {
	if p.hub.isClosed() {
		return nil, ErrClosed
	}
	wait, cancel := p.hub.subscribe(room)
	out := make(chan Event, 1)
	go runWatch(ctx, func(ctx context.Context) ([]Document, error) {
		return p.List(ctx, room)
	}, wait, out, cancel)
	return out, nil
}

func (p *Pebble) List(ctx context.Context, room string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.cmu.RLock()
	defer p.cmu.RUnlock()
	if p.hub.isClosed() {
		return nil, ErrClosed
	}
	prefix := msgPrefix(room)
	it, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("store.Pebble.List: %w", err)
	}
	defer it.Close() //nolint:errcheck

	docs := []Document{}
	for ok := it.First(); ok; ok = it.Next() {
		var d Document
		if err := json.Unmarshal(it.Value(), &d); err != nil {
			p.logger.Warn("pebble_bad_document", zap.String("room", room), zap.ByteString("key", it.Key()), zap.Error(err))
			continue
		}
		docs = append(docs, d)
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("store.Pebble.List: %w", err)
	}
	sortDocs(docs)
	return docs, nil
}

func (p *Pebble) Add(ctx context.Context, room string, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.cmu.RLock()
	defer p.cmu.RUnlock()
	if p.hub.isClosed() {
		return ErrClosed
	}
	doc, err := prepare(doc)
	if err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("store.Pebble.Add: marshal: %w", err)
	}

	p.wmu.Lock()
	defer p.wmu.Unlock()

	idx := indexKey(room, doc.Key)
	if _, closer, err := p.db.Get(idx); err == nil {
		closer.Close() //nolint:errcheck
		return nil
	} else if !errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("store.Pebble.Add: %w", err)
	}

	mk := msgKey(room, doc)
	b := p.db.NewBatch()
	defer b.Close() //nolint:errcheck
	if err := b.Set(mk, data, nil); err != nil {
		return fmt.Errorf("store.Pebble.Add: %w", err)
	}
	if err := b.Set(idx, mk, nil); err != nil {
		return fmt.Errorf("store.Pebble.Add: %w", err)
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("store.Pebble.Add: %w", err)
	}
	p.hub.notify(room)
	return nil
}

func (p *Pebble) Delete(ctx context.Context, room, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.cmu.RLock()
	defer p.cmu.RUnlock()
	if p.hub.isClosed() {
		return ErrClosed
	}

	p.wmu.Lock()
	defer p.wmu.Unlock()

	idx := indexKey(room, key)
	v, closer, err := p.db.Get(idx)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("store.Pebble.Delete: %w", err)
	}
	mk := append([]byte(nil), v...)
	closer.Close() //nolint:errcheck

	b := p.db.NewBatch()
	defer b.Close() //nolint:errcheck
	if err := b.Delete(mk, nil); err != nil {
		return fmt.Errorf("store.Pebble.Delete: %w", err)
	}
	if err := b.Delete(idx, nil); err != nil {
		return fmt.Errorf("store.Pebble.Delete: %w", err)
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("store.Pebble.Delete: %w", err)
	}
	p.hub.notify(room)
	return nil
}

func (p *Pebble) Close() error {
	p.cmu.Lock()
	defer p.cmu.Unlock()
	if p.hub.isClosed() {
		return nil
	}
	p.hub.close()
	return p.db.Close()
}
