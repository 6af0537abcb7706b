package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type backend struct {
	name string
	open func(t *testing.T) Store
}

func backends() []backend {
	return []backend{
		{"memory", func(t *testing.T) Store { return NewMemory() }},
		{"redis", func(t *testing.T) Store {
			mr := miniredis.RunT(t)
			return NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), zap.NewNop())
		}},
		{"pebble", func(t *testing.T) Store {
			s, err := OpenPebble(t.TempDir(), zap.NewNop())
			require.NoError(t, err)
			return s
		}},
	}
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func doc(key, text string, isUser bool, offset time.Duration) Document {
	return Document{Key: key, Text: text, IsUser: isUser, Timestamp: base.Add(offset)}
}

func nextEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "watch channel closed")
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Event{}
	}
}

func keys(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Key
	}
	return out
}

func TestStore_AddListOrder(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			defer s.Close()
			ctx := context.Background()

			require.NoError(t, s.Add(ctx, "r1", doc("c", "third", false, 2*time.Second)))
			require.NoError(t, s.Add(ctx, "r1", doc("a", "first", true, 0)))
			require.NoError(t, s.Add(ctx, "r1", doc("b", "second", false, time.Second)))
			require.NoError(t, s.Add(ctx, "r2", doc("z", "other room", true, 0)))

			docs, err := s.List(ctx, "r1")
			require.NoError(t, err)
			require.Equal(t, []string{"a", "b", "c"}, keys(docs))
			require.Equal(t, "first", docs[0].Text)
			require.True(t, docs[0].IsUser)
			require.False(t, docs[1].IsUser)
			require.True(t, docs[0].Timestamp.Equal(base))
			require.Empty(t, docs[0].Reactions)
		})
	}
}

func TestStore_AddIsIdempotent(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			defer s.Close()
			ctx := context.Background()

			require.NoError(t, s.Add(ctx, "r", doc("k", "original", true, 0)))
			require.NoError(t, s.Add(ctx, "r", doc("k", "rewritten", true, time.Second)))

			docs, err := s.List(ctx, "r")
			require.NoError(t, err)
			require.Len(t, docs, 1)
			require.Equal(t, "original", docs[0].Text)
		})
	}
}

func TestStore_AddRequiresKey(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			defer s.Close()
			err := s.Add(context.Background(), "r", Document{Text: "no key"})
			require.ErrorIs(t, err, ErrNoKey)
		})
	}
}

func TestStore_Delete(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			defer s.Close()
			ctx := context.Background()

			for i := 0; i < 3; i++ {
				require.NoError(t, s.Add(ctx, "r", doc(fmt.Sprintf("k%d", i), "x", true, time.Duration(i)*time.Second)))
			}
			require.NoError(t, s.Delete(ctx, "r", "k1"))
			require.NoError(t, s.Delete(ctx, "r", "missing"))

			docs, err := s.List(ctx, "r")
			require.NoError(t, err)
			require.Equal(t, []string{"k0", "k2"}, keys(docs))
		})
	}
}

func TestStore_RoomsSharingAPrefixStayApart(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			defer s.Close()
			ctx := context.Background()

			require.NoError(t, s.Add(ctx, "team:msg:x", doc("k1", "other room", true, 0)))
			require.NoError(t, s.Add(ctx, "team:key:k2", doc("k2", "other room", true, 0)))
			require.NoError(t, s.Add(ctx, "team", doc("k3", "mine", true, time.Second)))

			docs, err := s.List(ctx, "team")
			require.NoError(t, err)
			require.Equal(t, []string{"k3"}, keys(docs))

			require.NoError(t, s.Delete(ctx, "team", "k3"))
			docs, err = s.List(ctx, "team")
			require.NoError(t, err)
			require.Empty(t, docs)

			docs, err = s.List(ctx, "team:msg:x")
			require.NoError(t, err)
			require.Equal(t, []string{"k1"}, keys(docs))
		})
	}
}

func TestStore_WatchDeliversSnapshots(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			defer s.Close()
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			require.NoError(t, s.Add(ctx, "r", doc("a", "hello", true, 0)))

			ch, err := s.Watch(ctx, "r")
			require.NoError(t, err)

			ev := nextEvent(t, ch)
			require.NoError(t, ev.Err)
			require.Equal(t, []string{"a"}, keys(ev.Docs))

			require.NoError(t, s.Add(ctx, "r", doc("b", "hi", false, time.Second)))
			ev = nextEvent(t, ch)
			require.NoError(t, ev.Err)
			require.Equal(t, []string{"a", "b"}, keys(ev.Docs))

			require.NoError(t, s.Delete(ctx, "r", "a"))
			ev = nextEvent(t, ch)
			require.NoError(t, ev.Err)
			require.Equal(t, []string{"b"}, keys(ev.Docs))
		})
	}
}

func TestStore_WatchClosesOnCancel(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			defer s.Close()
			ctx, cancel := context.WithCancel(context.Background())

			ch, err := s.Watch(ctx, "r")
			require.NoError(t, err)
			nextEvent(t, ch)
			cancel()

			require.Eventually(t, func() bool {
				select {
				case _, ok := <-ch:
					return !ok
				default:
					return false
				}
			}, 3*time.Second, 10*time.Millisecond)
		})
	}
}

func TestMemory_WatchEndsWithErrorOnClose(t *testing.T) {
	s := NewMemory()
	ch, err := s.Watch(context.Background(), "r")
	require.NoError(t, err)
	nextEvent(t, ch)

	require.NoError(t, s.Close())
	ev := nextEvent(t, ch)
	require.ErrorIs(t, ev.Err, ErrClosed)

	_, err = s.Watch(context.Background(), "r")
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, s.Add(context.Background(), "r", doc("k", "x", true, 0)), ErrClosed)
}

func TestPebble_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenPebble(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, "r", doc("a", "kept", true, 0)))
	require.NoError(t, s.Close())

	s, err = OpenPebble(dir, nil)
	require.NoError(t, err)
	defer s.Close()

	docs, err := s.List(ctx, "r")
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, keys(docs))
	require.NoError(t, s.Add(ctx, "r", doc("a", "again", true, time.Minute)))
	docs, err = s.List(ctx, "r")
	require.NoError(t, err)
	require.Len(t, docs, 1)
}

func TestRedis_SharedBetweenClients(t *testing.T) {
	mr := miniredis.RunT(t)
	a := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), nil)
	b := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), nil)
	defer a.Close()
	defer b.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := a.Watch(ctx, "shared")
	require.NoError(t, err)
	require.Empty(t, nextEvent(t, ch).Docs)

	require.NoError(t, b.Add(ctx, "shared", doc("from-b", "hi from b", true, 0)))
	ev := nextEvent(t, ch)
	require.NoError(t, ev.Err)
	require.Equal(t, []string{"from-b"}, keys(ev.Docs))
}

func TestRedis_AddKeepsHashAndOrderInStep(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), nil)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, "r", doc("a", "first", true, 0)))
	require.NoError(t, s.Add(ctx, "r", doc("a", "again", true, time.Minute)))
	require.NoError(t, s.Add(ctx, "r", doc("b", "second", false, time.Second)))

	fields, err := mr.HKeys(docsKey("r"))
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b"}, fields)

	members, err := mr.ZMembers(orderKey("r"))
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, members)

	score, err := mr.ZScore(orderKey("r"), "a")
	require.NoError(t, err)
	require.Equal(t, float64(base.UnixMilli()), score)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Kind: KindMemory}, nil)
	require.NoError(t, err)
	require.IsType(t, &Memory{}, s)

	s, err = Open(ctx, Options{Kind: KindPebble, PebblePath: t.TempDir()}, nil)
	require.NoError(t, err)
	require.IsType(t, &Pebble{}, s)
	require.NoError(t, s.Close())

	mr := miniredis.RunT(t)
	s, err = Open(ctx, Options{Kind: KindRedis, RedisAddr: mr.Addr()}, nil)
	require.NoError(t, err)
	require.IsType(t, &Redis{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Options{Kind: "carrier-pigeon"}, nil)
	require.Error(t, err)
}

func TestPrefixUpperBound(t *testing.T) {
	require.Equal(t, []byte("room:a:msg;"), prefixUpperBound([]byte("room:a:msg:")))
	require.Equal(t, []byte{0x01}, prefixUpperBound([]byte{0x00, 0xff}))
	require.Nil(t, prefixUpperBound([]byte{0xff}))
}
