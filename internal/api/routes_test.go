package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/foryou-care/foryou/internal/db"
	"github.com/foryou-care/foryou/internal/models"
	"github.com/foryou-care/foryou/internal/risk"
	"github.com/foryou-care/foryou/internal/session"
	"github.com/foryou-care/foryou/internal/volunteer"
)

func testRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	pipeline := session.NewPipeline(gormDB, risk.NewKeywordClassifier(), nil)
	registerRoutes(router, gormDB, pipeline, nil, volunteer.AllowAll{})
	return router, gormDB
}

// do performs a JSON request against the router and decodes the response.
func do(t *testing.T, router *gin.Engine, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var decoded map[string]interface{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", w.Body.String(), err)
		}
	}
	return w.Code, decoded
}

func TestStartAndGetSession(t *testing.T) {
	router, _ := testRouter(t)

	code, resp := do(t, router, http.MethodPost, "/api/sessions", gin.H{"user_id": 7, "title": "evening"})
	if code != http.StatusCreated {
		t.Fatalf("start: status = %d, want 201 (%v)", code, resp)
	}
	uuid, _ := resp["UUID"].(string)
	if uuid == "" {
		t.Fatalf("expected a UUID in response, got %v", resp)
	}

	code, resp = do(t, router, http.MethodGet, "/api/sessions/"+uuid, nil)
	if code != http.StatusOK {
		t.Fatalf("get: status = %d, want 200 (%v)", code, resp)
	}
	if resp["session"] == nil {
		t.Error("expected session in response")
	}
}

func TestStartSession_MissingUser(t *testing.T) {
	router, _ := testRouter(t)

	code, _ := do(t, router, http.MethodPost, "/api/sessions", gin.H{"title": "no user"})
	if code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", code)
	}
}

func TestGetSession_Missing(t *testing.T) {
	router, _ := testRouter(t)

	code, _ := do(t, router, http.MethodGet, "/api/sessions/no-such-uuid", nil)
	if code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", code)
	}
}

func TestSendMessage_LowRisk(t *testing.T) {
	router, _ := testRouter(t)
	uuid := startSession(t, router)

	code, resp := do(t, router, http.MethodPost, "/api/sessions/"+uuid+"/messages",
		gin.H{"sender_id": 7, "content": "had an okay day at work today"})
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%v)", code, resp)
	}
	if resp["Level"] != "low" {
		t.Errorf("level = %v, want low", resp["Level"])
	}
	if resp["Offer"] != nil {
		t.Errorf("expected no offer for low risk, got %v", resp["Offer"])
	}
}

func TestEscalationFlow(t *testing.T) {
	router, gormDB := testRouter(t)
	uuid := startSession(t, router)

	// A critical message triggers an offer.
	code, resp := do(t, router, http.MethodPost, "/api/sessions/"+uuid+"/messages",
		gin.H{"sender_id": 7, "content": "i have been thinking about suicide"})
	if code != http.StatusOK {
		t.Fatalf("send: status = %d (%v)", code, resp)
	}
	offer, ok := resp["Offer"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected an offer, got %v", resp)
	}
	offerID := int(offer["ID"].(float64))

	// Accept the offer; an escalation request enters the queue.
	code, resp = do(t, router, http.MethodPost, fmt.Sprintf("/api/triage/%d/accept", offerID), nil)
	if code != http.StatusOK {
		t.Fatalf("accept: status = %d (%v)", code, resp)
	}
	esc, ok := resp["escalation"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected an escalation, got %v", resp)
	}
	escID := int(esc["ID"].(float64))
	if esc["Priority"] != "critical" {
		t.Errorf("priority = %v, want critical", esc["Priority"])
	}

	code, resp = do(t, router, http.MethodGet, "/api/queue", nil)
	if code != http.StatusOK {
		t.Fatalf("queue: status = %d", code)
	}
	waiting, _ := resp["waiting"].([]interface{})
	if len(waiting) != 1 {
		t.Fatalf("queue length = %d, want 1", len(waiting))
	}

	// Claim it; a second claim conflicts.
	code, resp = do(t, router, http.MethodPost, fmt.Sprintf("/api/queue/%d/claim", escID), gin.H{"volunteer_id": 42})
	if code != http.StatusOK {
		t.Fatalf("claim: status = %d (%v)", code, resp)
	}
	code, _ = do(t, router, http.MethodPost, fmt.Sprintf("/api/queue/%d/claim", escID), gin.H{"volunteer_id": 43})
	if code != http.StatusConflict {
		t.Errorf("second claim: status = %d, want 409", code)
	}

	// 1:1 messages flow both ways.
	code, _ = do(t, router, http.MethodPost, fmt.Sprintf("/api/queue/%d/messages", escID),
		gin.H{"sender_id": 42, "role": "volunteer", "content": "Hi, I'm here."})
	if code != http.StatusCreated {
		t.Errorf("volunteer direct send: status = %d, want 201", code)
	}
	code, _ = do(t, router, http.MethodPost, fmt.Sprintf("/api/queue/%d/messages", escID),
		gin.H{"sender_id": 7, "role": "user", "content": "thank you"})
	if code != http.StatusCreated {
		t.Errorf("user direct send: status = %d, want 201", code)
	}
	code, resp = do(t, router, http.MethodGet, fmt.Sprintf("/api/queue/%d/messages", escID), nil)
	if code != http.StatusOK {
		t.Fatalf("history: status = %d", code)
	}
	if msgs, _ := resp["messages"].([]interface{}); len(msgs) != 2 {
		t.Errorf("history length = %v, want 2", resp["messages"])
	}

	// Complete the interaction; everything closes out.
	code, _ = do(t, router, http.MethodPost, fmt.Sprintf("/api/queue/%d/complete", escID), nil)
	if code != http.StatusNoContent {
		t.Fatalf("complete: status = %d, want 204", code)
	}
	var s models.ChatSession
	if err := gormDB.First(&s, "uuid = ?", uuid).Error; err != nil {
		t.Fatal(err)
	}
	if s.Status != models.SessionCompleted {
		t.Errorf("session status = %s, want completed", s.Status)
	}
}

func TestTriageDecline(t *testing.T) {
	router, _ := testRouter(t)
	uuid := startSession(t, router)

	code, resp := do(t, router, http.MethodPost, "/api/sessions/"+uuid+"/messages",
		gin.H{"sender_id": 7, "content": "everything feels hopeless"})
	if code != http.StatusOK {
		t.Fatalf("send: status = %d (%v)", code, resp)
	}
	offer, ok := resp["Offer"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected an offer, got %v", resp)
	}
	offerID := int(offer["ID"].(float64))

	code, resp = do(t, router, http.MethodPost, fmt.Sprintf("/api/triage/%d/decline", offerID),
		gin.H{"reason": "not ready"})
	if code != http.StatusOK {
		t.Fatalf("decline: status = %d (%v)", code, resp)
	}
	if resp["Status"] != "declined" {
		t.Errorf("status = %v, want declined", resp["Status"])
	}

	// Declining again conflicts.
	code, _ = do(t, router, http.MethodPost, fmt.Sprintf("/api/triage/%d/decline", offerID), nil)
	if code != http.StatusConflict {
		t.Errorf("second decline: status = %d, want 409", code)
	}
}

func TestQueueRelease(t *testing.T) {
	router, _ := testRouter(t)
	uuid := startSession(t, router)

	code, resp := do(t, router, http.MethodPost, "/api/sessions/"+uuid+"/messages",
		gin.H{"sender_id": 7, "content": "please, can i talk to someone"})
	if code != http.StatusOK {
		t.Fatalf("send: status = %d (%v)", code, resp)
	}
	esc, ok := resp["Escalation"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected an escalation for explicit ask, got %v", resp)
	}
	escID := int(esc["ID"].(float64))

	code, _ = do(t, router, http.MethodPost, fmt.Sprintf("/api/queue/%d/claim", escID), gin.H{"volunteer_id": 42})
	if code != http.StatusOK {
		t.Fatalf("claim: status = %d", code)
	}
	code, _ = do(t, router, http.MethodPost, fmt.Sprintf("/api/queue/%d/release", escID), nil)
	if code != http.StatusNoContent {
		t.Fatalf("release: status = %d, want 204", code)
	}

	// Back in the queue.
	code, resp = do(t, router, http.MethodGet, "/api/queue", nil)
	if code != http.StatusOK {
		t.Fatalf("queue: status = %d", code)
	}
	if waiting, _ := resp["waiting"].([]interface{}); len(waiting) != 1 {
		t.Errorf("queue length = %v, want 1 after release", resp["waiting"])
	}
}

func TestEndSession(t *testing.T) {
	router, _ := testRouter(t)
	uuid := startSession(t, router)

	code, resp := do(t, router, http.MethodPost, "/api/sessions/"+uuid+"/end", nil)
	if code != http.StatusOK {
		t.Fatalf("end: status = %d (%v)", code, resp)
	}
	if resp["Status"] != "completed" {
		t.Errorf("status = %v, want completed default", resp["Status"])
	}

	// Messaging a closed session is a 404.
	code, _ = do(t, router, http.MethodPost, "/api/sessions/"+uuid+"/messages",
		gin.H{"sender_id": 7, "content": "hello?"})
	if code != http.StatusNotFound {
		t.Errorf("send after end: status = %d, want 404", code)
	}
}

func TestPathID_Invalid(t *testing.T) {
	router, _ := testRouter(t)

	code, _ := do(t, router, http.MethodPost, "/api/triage/abc/accept", nil)
	if code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", code)
	}
}

func startSession(t *testing.T, router *gin.Engine) string {
	t.Helper()
	code, resp := do(t, router, http.MethodPost, "/api/sessions", gin.H{"user_id": 7})
	if code != http.StatusCreated {
		t.Fatalf("start session: status = %d (%v)", code, resp)
	}
	uuid, _ := resp["UUID"].(string)
	if uuid == "" {
		t.Fatalf("no UUID in response: %v", resp)
	}
	return uuid
}
