package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"mathquiz-service/internal/app"
	"mathquiz-service/internal/domain"
	"mathquiz-service/internal/game"
)

// gameOverTop is how many leaderboard entries accompany a gameOver message.
const gameOverTop = 10

type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService) *WSHandler {
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

type answerPayload struct {
	Answer *float64 `json:"answer"`
}

type gamePayload struct {
	GameID        string            `json:"gameId"`
	Difficulty    domain.Difficulty `json:"difficulty"`
	QuestionCount int               `json:"questionCount"`
}

// questionPayload never carries the correct answer.
type questionPayload struct {
	GameID    string           `json:"gameId"`
	ID        int              `json:"id"`
	Number    int              `json:"number"`
	Total     int              `json:"total"`
	Operand1  int              `json:"operand1"`
	Operand2  int              `json:"operand2"`
	Operation domain.Operation `json:"operation"`
	Prompt    string           `json:"prompt"`
}

type answerResult struct {
	QuestionID        int     `json:"questionId"`
	CorrectAnswer     float64 `json:"correctAnswer"`
	UserAnswer        float64 `json:"userAnswer"`
	ElapsedSeconds    float64 `json:"elapsedSeconds"`
	PercentDifference float64 `json:"percentDifference"`
	Score             float64 `json:"score"`
	TotalScore        float64 `json:"totalScore"`
}

type gameOverPayload struct {
	Record      domain.GameRecord         `json:"record"`
	Entry       *domain.LeaderboardEntry  `json:"entry"`
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}

func newQuestionMessage(session *game.Session, q domain.Question) outboundMessage[any] {
	return outboundMessage[any]{Type: "question", Payload: questionPayload{
		GameID:    session.ID,
		ID:        q.ID,
		Number:    session.CurrentIndex + 1,
		Total:     len(session.Questions),
		Operand1:  q.Operand1,
		Operand2:  q.Operand2,
		Operation: q.Operation,
		Prompt:    q.Prompt(),
	}}
}

// ServeWS upgrades HTTP requests to websockets and plays one game per connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	if userID == "" || displayName == "" {
		http.Error(w, "missing userId or name", http.StatusBadRequest)
		return
	}
	difficulty, err := domain.ParseDifficulty(r.URL.Query().Get("difficulty"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	session, err := h.service.NewGame(ctx, userID, displayName, difficulty)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err.Error()))
		return
	}
	gameID := session.ID

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()
	defer func() {
		close(send)
		<-writerDone
	}()

	send <- outboundMessage[any]{Type: "game", Payload: gamePayload{
		GameID:        gameID,
		Difficulty:    difficulty,
		QuestionCount: len(session.Questions),
	}}

	q, err := h.service.StartQuestion(ctx, gameID)
	if err != nil {
		send <- errorMessage(err.Error())
		return
	}
	send <- newQuestionMessage(session, q)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		if inbound.Type != "answer" {
			send <- errorMessage("unsupported message type")
			continue
		}
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Answer == nil {
			send <- errorMessage("invalid answer payload")
			continue
		}

		scored, submitted, err := h.service.SubmitAnswer(ctx, gameID, *payload.Answer)
		if err != nil {
			send <- errorMessage(err.Error())
			continue
		}
		if !submitted {
			send <- errorMessage("no question in progress")
			continue
		}

		session, err = h.service.AdvanceQuestion(ctx, gameID)
		if err != nil {
			send <- errorMessage(err.Error())
			return
		}
		send <- outboundMessage[any]{Type: "answerResult", Payload: answerResult{
			QuestionID:        scored.ID,
			CorrectAnswer:     scored.CorrectAnswer,
			UserAnswer:        scored.UserAnswer,
			ElapsedSeconds:    scored.ElapsedSeconds,
			PercentDifference: scored.PercentDifference,
			Score:             scored.Score,
			TotalScore:        session.TotalScore(),
		}}

		if session.Complete() {
			h.finish(r, gameID, difficulty, send)
			return
		}

		q, err = h.service.StartQuestion(ctx, gameID)
		if err != nil {
			send <- errorMessage(err.Error())
			return
		}
		send <- newQuestionMessage(session, q)
	}
}

func (h *WSHandler) finish(r *http.Request, gameID string, d domain.Difficulty, send chan<- outboundMessage[any]) {
	result, err := h.service.FinishGame(r.Context(), gameID)
	if err != nil {
		send <- errorMessage(err.Error())
		return
	}
	board, err := h.service.Leaderboard().GetLeaderboard(r.Context(), d, gameOverTop)
	if err != nil {
		log.Printf("load leaderboard after game %s: %v", gameID, err)
		board = []domain.LeaderboardEntry{}
	}
	send <- outboundMessage[any]{Type: "gameOver", Payload: gameOverPayload{
		Record:      result.Record,
		Entry:       result.Entry,
		Leaderboard: board,
	}}
}
