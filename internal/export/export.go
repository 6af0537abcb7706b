// Package export writes a room's conversation to a JSON file.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/naveenspark/murmur/pkg/domain"
)

// Entry is one exported message.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	Reactions []string  `json:"reactions,omitempty"`
	Type      string    `json:"type,omitempty"`
	Mood      string    `json:"mood,omitempty"`
}

// Artifact is the exported document.
type Artifact struct {
	RoomID       string    `json:"roomId"`
	ExportDate   time.Time `json:"exportDate"`
	MessageCount int       `json:"messageCount"`
	Messages     []Entry   `json:"messages"`
}

// Senders as they appear in the export.
const (
	SenderUser      = "user"
	SenderAssistant = "ai"
)

// Build collects the persisted messages of a room. Welcome and in-progress
// entries are skipped.
func Build(roomID string, msgs []domain.Message, now time.Time) Artifact {
	a := Artifact{RoomID: roomID, ExportDate: now.UTC(), Messages: []Entry{}}
	for _, m := range msgs {
		if !m.Persisted() {
			continue
		}
		sender := SenderAssistant
		if m.IsUser() {
			sender = SenderUser
		}
		a.Messages = append(a.Messages, Entry{
			Timestamp: m.CreatedAt.UTC(),
			Sender:    sender,
			Message:   m.Text,
			Reactions: m.Reactions.Sorted(),
			Type:      m.Kind,
			Mood:      m.Mood,
		})
	}
	a.MessageCount = len(a.Messages)
	return a
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName returns chat-export-<room>-<yyyymmdd-hhmmss>.json.
func FileName(a Artifact) string {
	room := unsafeName.ReplaceAllString(a.RoomID, "_")
	if room == "" {
		room = "room"
	}
	return fmt.Sprintf("chat-export-%s-%s.json", room, a.ExportDate.Format("20060102-150405"))
}

// Write stores a in dir and returns the file path.
func Write(dir string, a Artifact) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export.Write: %w", err)
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export.Write: marshal: %w", err)
	}
	path := filepath.Join(dir, FileName(a))
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("export.Write: %w", err)
	}
	return path, nil
}
