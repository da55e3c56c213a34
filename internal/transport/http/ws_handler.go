package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"codemaster/internal/app"
	"codemaster/internal/domain"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type replayPayload struct {
	SessionID string `json:"sessionId"`
}

type answerPayload struct {
	AnswerIndex *int `json:"answerIndex"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type answerView struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type questionView struct {
	ID         string            `json:"id"`
	Prompt     string            `json:"prompt"`
	Answers    []answerView      `json:"answers"`
	Category   string            `json:"category"`
	Difficulty domain.Difficulty `json:"difficulty"`
}

// sessionView exposes the current question without leaking its correct index.
type sessionView struct {
	SessionID      string            `json:"sessionId"`
	Index          int               `json:"index"`
	Total          int               `json:"total"`
	Difficulty     domain.Difficulty `json:"difficulty"`
	Categories     []string          `json:"categories"`
	DailyChallenge bool              `json:"dailyChallenge,omitempty"`
	Answered       bool              `json:"answered"`
	Question       *questionView     `json:"question,omitempty"`
}

func newSessionView(sess domain.Session) sessionView {
	view := sessionView{
		SessionID:      sess.ID,
		Index:          sess.Cursor,
		Total:          len(sess.Questions),
		Difficulty:     sess.Difficulty,
		Categories:     sess.Categories,
		DailyChallenge: sess.DailyChallenge,
	}
	q, ok := sess.Current()
	if !ok {
		return view
	}
	view.Answered = q.Answered()
	qv := &questionView{ID: q.ID, Prompt: q.Prompt, Category: q.Category, Difficulty: q.Difficulty}
	for _, idx := range q.AnswerOrder {
		if idx >= 0 && idx < len(q.Answers) {
			qv.Answers = append(qv.Answers, answerView{Index: idx, Text: q.Answers[idx]})
		}
	}
	view.Question = qv
	return view
}

// ServeWS upgrades HTTP requests to websockets and drives one quiz session per connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, stop := context.WithCancel(r.Context())
	defer stop()

	updates, cancel := h.service.Subscribe(ctx)
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case evt, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "event", Payload: evt}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	c := &wsConn{service: h.service, send: send}
	if pending, ok, err := h.service.Pending(ctx); err != nil {
		c.fail(err)
	} else if ok {
		c.sessionID = pending.ID
		c.reply("session", newSessionView(pending))
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		c.handle(ctx, inbound)
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// wsConn holds per-connection state touched only by the read loop.
type wsConn struct {
	service   *app.QuizService
	send      chan<- outboundMessage[any]
	sessionID string
}

func (c *wsConn) reply(typ string, payload any) {
	c.send <- outboundMessage[any]{Type: typ, Payload: payload}
}

func (c *wsConn) fail(err error) {
	c.reply("error", errorPayload{Message: err.Error(), Code: errorCode(err)})
}

func (c *wsConn) handle(ctx context.Context, msg inboundMessage) {
	switch msg.Type {
	case "start":
		var req app.StartRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			c.reply("error", errorPayload{Message: "invalid start payload", Code: "bad_request"})
			return
		}
		sess, err := c.service.Start(ctx, req)
		if err != nil {
			c.fail(err)
			return
		}
		c.sessionID = sess.ID
		c.reply("session", newSessionView(sess))
	case "replay":
		var payload replayPayload
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				c.reply("error", errorPayload{Message: "invalid replay payload", Code: "bad_request"})
				return
			}
		}
		sess, err := c.service.Replay(ctx, payload.SessionID)
		if err != nil {
			c.fail(err)
			return
		}
		c.sessionID = sess.ID
		c.reply("session", newSessionView(sess))
	case "resume":
		sess, ok, err := c.service.Pending(ctx)
		if err != nil {
			c.fail(err)
			return
		}
		if !ok {
			c.fail(domain.ErrSessionNotFound)
			return
		}
		c.sessionID = sess.ID
		c.reply("session", newSessionView(sess))
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.AnswerIndex == nil {
			c.reply("error", errorPayload{Message: "invalid answer payload", Code: "bad_request"})
			return
		}
		res, err := c.service.Answer(ctx, c.sessionID, *payload.AnswerIndex)
		if err != nil {
			c.fail(err)
			return
		}
		c.reply("answerResult", res)
	case "skip":
		c.advance(c.service.Skip(ctx, c.sessionID))
	case "next":
		c.advance(c.service.Next(ctx, c.sessionID))
	case "abandon":
		if err := c.service.Abandon(ctx, c.sessionID); err != nil {
			c.fail(err)
			return
		}
		c.sessionID = ""
	default:
		c.reply("error", errorPayload{Message: "unsupported message type", Code: "bad_request"})
	}
}

func (c *wsConn) advance(sess domain.Session, summary *app.Summary, err error) {
	if err != nil {
		c.fail(err)
		return
	}
	if summary != nil {
		c.sessionID = ""
		c.reply("finished", summary)
		return
	}
	c.reply("session", newSessionView(sess))
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrQuestionNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrSessionPending), errors.Is(err, domain.ErrSessionFinished),
		errors.Is(err, domain.ErrAlreadyAnswered):
		return "conflict"
	case errors.Is(err, domain.ErrNoCategories), errors.Is(err, domain.ErrInvalidDifficulty),
		errors.Is(err, domain.ErrInvalidAnswer), errors.Is(err, domain.ErrInvalidImport),
		errors.Is(err, domain.ErrNotEnoughQuestions):
		return "bad_request"
	}
	return "internal"
}

func statusFor(err error) int {
	switch errorCode(err) {
	case "not_found":
		return http.StatusNotFound
	case "conflict":
		return http.StatusConflict
	case "bad_request":
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
