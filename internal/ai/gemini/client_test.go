package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const testModel = "gemini-2.5-flash"

type scriptedReply struct {
	resp *genai.GenerateContentResponse
	err  error
}

type recordedSession struct {
	model  string
	config *genai.GenerateContentConfig
	chat   *scriptedChat
}

type scriptedChat struct {
	mu    sync.Mutex
	reply scriptedReply
	sent  []string
}

func (c *scriptedChat) SendMessage(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, part := range parts {
		c.sent = append(c.sent, part.Text)
	}
	return c.reply.resp, c.reply.err
}

// scriptedChats hands out one chat per queued reply, in order.
type scriptedChats struct {
	mu       sync.Mutex
	replies  []scriptedReply
	sessions []recordedSession
}

func (s *scriptedChats) push(resp *genai.GenerateContentResponse, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, scriptedReply{resp: resp, err: err})
}

func (s *scriptedChats) Create(_ context.Context, model string, config *genai.GenerateContentConfig, _ []*genai.Content) (chatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.replies) == 0 {
		return nil, errors.New("no scripted reply left")
	}
	chat := &scriptedChat{reply: s.replies[0]}
	s.replies = s.replies[1:]
	s.sessions = append(s.sessions, recordedSession{model: model, config: config, chat: chat})
	return chat, nil
}

func (s *scriptedChats) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func textReply(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func stubSleep(t *testing.T, fn func(time.Duration)) {
	t.Helper()
	original := sleep
	sleep = fn
	t.Cleanup(func() { sleep = original })
}

func newTestGenerator(chats chatCreator, retries int) *Generator {
	return &Generator{
		chats:      chats,
		model:      testModel,
		maxRetries: retries,
		logger:     zap.NewNop(),
	}
}

var serverError = genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}

func TestGeneratorRetriesServerErrors(t *testing.T) {
	stubSleep(t, func(time.Duration) {})

	chats := &scriptedChats{}
	chats.push(nil, serverError)
	chats.push(textReply(`{"care_level": "Assisted Living"}`), nil)

	g := newTestGenerator(chats, 2)

	output, err := g.GenerateContent(context.Background(), "extract preferences", "Dad needs help with bathing.")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output != `{"care_level": "Assisted Living"}` {
		t.Fatalf("unexpected output: %q", output)
	}

	if chats.count() != 2 {
		t.Fatalf("expected 2 chat sessions, got %d", chats.count())
	}
	for _, session := range chats.sessions {
		if session.model != testModel {
			t.Fatalf("unexpected model: %s", session.model)
		}
		if session.config == nil || session.config.SystemInstruction == nil {
			t.Fatalf("expected system instruction to be set")
		}
		if got := session.config.SystemInstruction.Parts[0].Text; got != "extract preferences" {
			t.Fatalf("unexpected system instruction: %q", got)
		}
		if len(session.chat.sent) != 1 || session.chat.sent[0] != "Dad needs help with bathing." {
			t.Fatalf("unexpected transcript sent: %+v", session.chat.sent)
		}
	}
}

func TestGeneratorGivesUpAfterMaxRetries(t *testing.T) {
	stubSleep(t, func(time.Duration) {})

	chats := &scriptedChats{}
	chats.push(nil, serverError)
	chats.push(nil, serverError)

	_, err := newTestGenerator(chats, 2).GenerateContent(context.Background(), "sys", "transcript")
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if chats.count() != 2 {
		t.Fatalf("expected 2 chat sessions, got %d", chats.count())
	}
}

func TestGeneratorSkipsLongQuotaWaits(t *testing.T) {
	chats := &scriptedChats{}
	chats.push(nil, genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	})

	_, err := newTestGenerator(chats, 3).GenerateContent(context.Background(), "sys", "transcript")
	if err == nil {
		t.Fatal("expected error when quota wait is too long")
	}
	if chats.count() != 1 {
		t.Fatalf("expected single chat session, got %d", chats.count())
	}
}

func TestGeneratorWaitsRequestedQuotaDelay(t *testing.T) {
	var mu sync.Mutex
	var waited []time.Duration
	stubSleep(t, func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		waited = append(waited, d)
	})

	chats := &scriptedChats{}
	chats.push(nil, genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry in 3s",
	})
	chats.push(textReply("{}"), nil)

	if _, err := newTestGenerator(chats, 3).GenerateContent(context.Background(), "sys", "transcript"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(waited) != 1 || waited[0] != 3*time.Second {
		t.Fatalf("unexpected waits: %v", waited)
	}
}

func TestGeneratorBackoffStopsOnCancel(t *testing.T) {
	release := make(chan struct{})
	stubSleep(t, func(time.Duration) { <-release })
	t.Cleanup(func() { close(release) })

	chats := &scriptedChats{}
	chats.push(nil, serverError)
	chats.push(nil, serverError)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newTestGenerator(chats, 3).GenerateContent(ctx, "sys", "transcript")
	elapsed := time.Since(start)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed > time.Second {
		t.Fatalf("backoff was not interrupted, took %s", elapsed)
	}
	if chats.count() != 1 {
		t.Fatalf("expected a single attempt before cancellation, got %d", chats.count())
	}
}

func TestGeneratorDoesNotRetryClientErrors(t *testing.T) {
	chats := &scriptedChats{}
	chats.push(nil, genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"})

	if _, err := newTestGenerator(chats, 3).GenerateContent(context.Background(), "sys", "transcript"); err == nil {
		t.Fatal("expected error")
	}
	if chats.count() != 1 {
		t.Fatalf("expected single chat session, got %d", chats.count())
	}
}

func TestGeneratorRejectsEmptyTranscript(t *testing.T) {
	g := newTestGenerator(&scriptedChats{}, 1)

	if _, err := g.GenerateContent(context.Background(), "sys", "   "); err == nil {
		t.Fatal("expected error for empty transcript")
	}
}

func TestRequestedDelay(t *testing.T) {
	tests := []struct {
		message string
		expect  time.Duration
		ok      bool
	}{
		{message: "retry after 60 seconds", expect: 60 * time.Second, ok: true},
		{message: "Please retry in 1.5s", expect: 1500 * time.Millisecond, ok: true},
		{message: "quota exhausted", ok: false},
	}

	for _, tt := range tests {
		got, ok := requestedDelay(tt.message)
		if ok != tt.ok || got != tt.expect {
			t.Fatalf("requestedDelay(%q) = %s, %v; want %s, %v", tt.message, got, ok, tt.expect, tt.ok)
		}
	}
}
