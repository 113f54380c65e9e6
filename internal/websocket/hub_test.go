package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"

	"studyroom-backend/internal/logger"
	"studyroom-backend/internal/middleware"
	"studyroom-backend/internal/models"
	"studyroom-backend/internal/services"
)

func TestHub_RejectsMissingOrInvalidToken(t *testing.T) {
	hub := NewHub(nil, middleware.NewJWTAuth("secret"), "", logger.Nop())

	for _, target := range []string{"/ws", "/ws?token=garbage"} {
		rr := httptest.NewRecorder()
		hub.HandleWebSocket(rr, httptest.NewRequest(http.MethodGet, target, nil))
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", target, rr.Code)
		}
	}
}

func TestHub_DeliversInProcessUpdates(t *testing.T) {
	auth := middleware.NewJWTAuth("secret")
	hub := NewHub(nil, auth, "", logger.Nop())
	defer hub.Close()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	userID := uuid.New()
	token, err := auth.GenerateAccessToken(userID, time.Minute)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=" + token
	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectionCount(userID) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("connection was never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	materialID := uuid.New()
	hub.PublishUpdate(context.Background(), userID, models.WSMessage{
		Type:    services.EventStudyMaterialCreated,
		Payload: models.StudyMaterialEvent{StudyMaterialID: materialID, Title: "Cells"},
	})
	hub.PublishUpdate(context.Background(), uuid.New(), models.WSMessage{Type: "someone_else"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var msg struct {
		Type    string                    `json:"type"`
		Payload models.StudyMaterialEvent `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != services.EventStudyMaterialCreated || msg.Payload.StudyMaterialID != materialID {
		t.Fatalf("unexpected message: %s", data)
	}
}
