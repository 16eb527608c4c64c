package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusCreated).
		BodyHTML([]byte("<p>ok</p>")).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if w.Body.String() != "<p>ok</p>" {
		t.Errorf("Body = %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Error("HX-Trigger must not be set without triggers")
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerChanged("expenses").
		TriggerFormReset().
		TriggerSuccessNotification("Expense added successfully").
		Write(w)

	var triggers map[string]json.RawMessage
	if err := json.Unmarshal([]byte(w.Header().Get("HX-Trigger")), &triggers); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	for _, name := range []string{"expenses:changed", "form:reset", "show-notification"} {
		if _, ok := triggers[name]; !ok {
			t.Errorf("HX-Trigger missing %q", name)
		}
	}

	var toast struct {
		Type     string `json:"type"`
		Message  string `json:"message"`
		Duration int    `json:"duration"`
	}
	if err := json.Unmarshal(triggers["show-notification"], &toast); err != nil {
		t.Fatalf("show-notification payload: %v", err)
	}
	if toast.Type != "success" || toast.Message != "Expense added successfully" || toast.Duration != DefaultToastDuration {
		t.Errorf("toast = %+v", toast)
	}
}

func TestTriggerNotification_DefaultDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration int
		want     string
	}{
		{"zero uses default", 0, `"duration":4000`},
		{"negative uses default", -5, `"duration":4000`},
		{"explicit", 1500, `"duration":1500`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewHTMXResponse().TriggerNotification(NotificationInfo, "hi", tt.duration).Write(w)
			if got := w.Header().Get("HX-Trigger"); !strings.Contains(got, tt.want) {
				t.Errorf("HX-Trigger = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestHTMXResponseBuilder_Redirect(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().Redirect("/dashboard").Write(w)
	if got := w.Header().Get("HX-Redirect"); got != "/dashboard" {
		t.Errorf("HX-Redirect = %q", got)
	}
}

func TestErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()
	UnprocessableEntityError("Amount must be greater than 0").Write(w)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Status code = %d, want 422", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Amount must be greater than 0") {
		t.Errorf("Body = %q", w.Body.String())
	}
	if !strings.Contains(w.Header().Get("HX-Trigger"), `"type":"error"`) {
		t.Errorf("HX-Trigger = %s, want an error toast", w.Header().Get("HX-Trigger"))
	}
}

func TestErrorResponse_EscapesHTML(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorResponse(http.StatusBadRequest, `<script>alert("x")</script>`).Write(w)

	if strings.Contains(w.Body.String(), "<script>") {
		t.Errorf("message not escaped: %s", w.Body.String())
	}
}
