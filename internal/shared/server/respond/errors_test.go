package respond

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"registration-backend/internal/shared/telemetry"
)

func TestErrorWritesFlatBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var logs bytes.Buffer
	telemetry.SetOutput(&logs)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/x", nil)

	Error(c, http.StatusBadRequest, "missing_documents", "Missing required documents", map[string]any{
		"missingDocuments": []string{"student_ic"},
		"error":            "ignored",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "Missing required documents" {
		t.Fatalf("unexpected error field: %v", body["error"])
	}
	if docs, ok := body["missingDocuments"].([]any); !ok || len(docs) != 1 {
		t.Fatalf("unexpected missingDocuments: %v", body["missingDocuments"])
	}
	if !c.IsAborted() {
		t.Fatalf("expected context to be aborted")
	}
	if !strings.Contains(logs.String(), `"level":"warn"`) {
		t.Fatalf("expected warn log for 4xx, got %s", logs.String())
	}
}
