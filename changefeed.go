package main

import (
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
)

// Table names carried on change events.
const (
	TableGrades    = "grades"
	TableSemesters = "semesters"
	TableSubjects  = "subjects"
	TableLessons   = "lessons"
	TableQuestions = "questions"
	TableProfiles  = "profiles"
)

var contentTables = []string{TableGrades, TableSemesters, TableSubjects, TableLessons, TableQuestions}

// ChangeEvent is the per-table push notification. Consumers use it only
// as a re-fetch trigger, so no row payload is carried.
type ChangeEvent struct {
	Table string `json:"table"`
	Op    string `json:"op"` // "insert" | "update" | "delete"
}

// Hub fans change events out to per-table subscribers.
type Hub struct {
	mu   sync.Mutex
	subs map[string][]chan ChangeEvent
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string][]chan ChangeEvent)}
}

// Subscribe returns a buffered channel of events for one table.
func (h *Hub) Subscribe(table string) chan ChangeEvent {
	ch := make(chan ChangeEvent, 8)
	h.mu.Lock()
	h.subs[table] = append(h.subs[table], ch)
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(table string, ch chan ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.subs[table]
	for i, s := range subs {
		if s == ch {
			h.subs[table] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

// Publish never blocks; a subscriber with a full buffer misses the
// event, which is fine because the feed is only a re-fetch trigger.
func (h *Hub) Publish(table, op string) {
	ev := ChangeEvent{Table: table, Op: op}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[table] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// ChangeFeed streams change events for ?table= over a websocket.
// GET /api/v1/changes?table=grades
func ChangeFeed(hub *Hub) gin.HandlerFunc {
	known := map[string]bool{
		TableGrades: true, TableSemesters: true, TableSubjects: true,
		TableLessons: true, TableQuestions: true, TableProfiles: true,
	}
	return func(c *gin.Context) {
		table := c.Query("table")
		if !known[table] {
			c.JSON(400, gin.H{"error": "unknown table"})
			return
		}
		conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			return
		}
		defer conn.CloseNow()

		ch := hub.Subscribe(table)
		defer hub.Unsubscribe(table, ch)

		ctx := conn.CloseRead(c.Request.Context())
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-ch:
				if err := wsjson.Write(ctx, conn, ev); err != nil {
					return
				}
			}
		}
	}
}
