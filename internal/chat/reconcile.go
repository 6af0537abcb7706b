package chat

import "github.com/naveenspark/murmur/pkg/domain"

// reconcile builds the live list: the snapshot, then optimistic entries the
// snapshot does not contain yet, then the in-progress entry. Local reaction
// overrides replace the stored reaction set of the same key.
func reconcile(snapshot, pending []domain.Message, typing *domain.Message, overlay map[string]domain.Reactions) []domain.Message {
	out := make([]domain.Message, 0, len(snapshot)+len(pending)+1)
	seen := make(map[string]bool, len(snapshot))
	for _, m := range snapshot {
		seen[m.Key] = true
		out = append(out, withOverlay(m, overlay))
	}
	for _, m := range pending {
		if seen[m.Key] {
			continue
		}
		out = append(out, withOverlay(m, overlay))
	}
	if typing != nil {
		out = append(out, *typing)
	}
	return out
}

func withOverlay(m domain.Message, overlay map[string]domain.Reactions) domain.Message {
	if r, ok := overlay[m.Key]; ok {
		m.Reactions = r
	}
	return m
}

// confirmed drops the pending entries whose key appears in snapshot.
func confirmed(pending, snapshot []domain.Message) []domain.Message {
	if len(pending) == 0 {
		return pending
	}
	keys := make(map[string]bool, len(snapshot))
	for _, m := range snapshot {
		keys[m.Key] = true
	}
	out := pending[:0:0]
	for _, m := range pending {
		if !keys[m.Key] {
			out = append(out, m)
		}
	}
	return out
}

func withoutKey(msgs []domain.Message, key string) []domain.Message {
	out := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Key != key {
			out = append(out, m)
		}
	}
	return out
}
