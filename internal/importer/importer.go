package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/ndelucca/clara/internal/conversation"
	"github.com/ndelucca/clara/internal/memory"
)

// Export payload shapes: a list of conversations, each holding a
// mapping of message nodes keyed by message id.
type exportConversation struct {
	Mapping map[string]exportNode `json:"mapping"`
}

type exportNode struct {
	Message *exportMessage `json:"message"`
}

type exportMessage struct {
	ID         string        `json:"id"`
	Author     exportAuthor  `json:"author"`
	Content    exportContent `json:"content"`
	CreateTime float64       `json:"create_time"`
}

type exportAuthor struct {
	Role string `json:"role"`
}

type exportContent struct {
	ContentType string `json:"content_type"`
	Parts       []any  `json:"parts"`
}

// Importer loads a structured conversation export into the turn store
// and the memory index.
type Importer struct {
	turns   conversation.Store
	index   memory.Index
	tracker *Tracker
}

func New(turns conversation.Store, index memory.Index, tracker *Tracker) *Importer {
	return &Importer{turns: turns, index: index, tracker: tracker}
}

// Import parses the export, counts importable parts first, then loads
// each part as one upserted turn (keyed by the original message id)
// plus one memory entry. It returns the counted total.
func (im *Importer) Import(ctx context.Context, data []byte, jobID string) (int, error) {
	var conversations []exportConversation
	if err := json.Unmarshal(data, &conversations); err != nil {
		return 0, fmt.Errorf("parse export: %w", err)
	}

	total := 0
	walkTextParts(conversations, func(_ *exportMessage, _ string) {
		total++
	})
	if im.tracker != nil {
		im.tracker.SetTotal(jobID, total)
	}

	var loadErr error
	walkTextParts(conversations, func(msg *exportMessage, part string) {
		if loadErr != nil {
			return
		}
		if err := im.index.Add(ctx, part); err != nil {
			// Memory indexing is best effort during bulk load; the turn
			// itself is still persisted.
			log.Printf("import: memory add failed for %s: %v", msg.ID, err)
		}
		turn := conversation.Turn{
			ID:        msg.ID,
			Timestamp: unixToUTC(msg.CreateTime),
			Role:      conversation.Role(msg.Author.Role),
			Content:   part,
		}
		if turn.Role != conversation.RoleUser && turn.Role != conversation.RoleAssistant {
			turn.Role = conversation.RoleUser
		}
		if err := im.turns.Append(ctx, turn); err != nil {
			loadErr = fmt.Errorf("persist imported turn %s: %w", msg.ID, err)
			return
		}
		if im.tracker != nil {
			im.tracker.Increment(jobID)
		}
	})
	if loadErr != nil {
		return 0, loadErr
	}
	return total, nil
}

// walkTextParts visits every non-empty string part of every text-type
// message node.
func walkTextParts(conversations []exportConversation, visit func(msg *exportMessage, part string)) {
	for _, conv := range conversations {
		for _, node := range conv.Mapping {
			msg := node.Message
			if msg == nil || msg.Content.ContentType != "text" {
				continue
			}
			for _, raw := range msg.Content.Parts {
				part, ok := raw.(string)
				if !ok {
					continue
				}
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				visit(msg, part)
			}
		}
	}
}

func unixToUTC(ts float64) time.Time {
	if ts <= 0 {
		return time.Now().UTC()
	}
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC()
}
