package insight

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestGenerator(baseURL string) *Generator {
	return NewGenerator(&Config{
		Model:   "test-model",
		APIKey:  "test-key",
		BaseURL: baseURL,
	}, nil)
}

func TestGenerateSuccess(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  This video rides a strong emotional hook.  "}}]}`))
	}))
	defer server.Close()

	g := newTestGenerator(server.URL)
	got := g.Generate(context.Background(), "My Title", "My description\n\nmy transcript")

	if got != "This video rides a strong emotional hook." {
		t.Errorf("insight = %q, want trimmed content", got)
	}
	if IsErrorInsight(got) {
		t.Error("successful generation flagged as error insight")
	}

	// The prompt must embed both the title and the assembled context.
	messages, ok := gotBody["messages"].([]interface{})
	if !ok || len(messages) != 2 {
		t.Fatalf("messages = %v, want system + user", gotBody["messages"])
	}
	user := messages[1].(map[string]interface{})
	content := user["content"].(string)
	if !strings.Contains(content, "My Title") || !strings.Contains(content, "my transcript") {
		t.Errorf("user prompt missing title or context: %q", content)
	}
	if gotBody["max_tokens"].(float64) != 100 {
		t.Errorf("max_tokens = %v, want 100", gotBody["max_tokens"])
	}
	if gotBody["temperature"].(float64) != 0.7 {
		t.Errorf("temperature = %v, want 0.7", gotBody["temperature"])
	}
}

func TestGenerateFailureReturnsErrorString(t *testing.T) {
	// 4xx is permanent: no retries, immediate error placeholder.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"auth_error"}}`))
	}))
	defer server.Close()

	g := newTestGenerator(server.URL)
	got := g.Generate(context.Background(), "Title", "context")

	if !strings.HasPrefix(got, "Error generating insight: ") {
		t.Errorf("insight = %q, want error placeholder prefix", got)
	}
	if !IsErrorInsight(got) {
		t.Error("error placeholder not detected by IsErrorInsight")
	}
}

func TestGenerateEmptyChoicesIsError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if calls == 1 {
			// Empty choices is retryable; the second attempt succeeds.
			_, _ = w.Write([]byte(`{"choices":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"recovered"}}]}`))
	}))
	defer server.Close()

	g := newTestGenerator(server.URL)
	got := g.Generate(context.Background(), "Title", "context")

	if got != "recovered" {
		t.Errorf("insight = %q, want %q after retry", got, "recovered")
	}
	if calls < 2 {
		t.Errorf("expected a retry after empty choices, got %d calls", calls)
	}
}

func TestIsErrorInsight(t *testing.T) {
	testCases := []struct {
		in   string
		want bool
	}{
		{in: "Error generating insight: HTTP 500", want: true},
		{in: "A genuine insight about pacing.", want: false},
		{in: "", want: false},
	}
	for _, tc := range testCases {
		if got := IsErrorInsight(tc.in); got != tc.want {
			t.Errorf("IsErrorInsight(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
