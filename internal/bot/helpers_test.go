package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/teleta/archivebot/internal/store"
)

const (
	testToken   = "123:TEST"
	botUsername = "bot_user_name"
)

// -------------------------
// Фейковый Bot API
// -------------------------

type sentMessage struct {
	ChatID string
	Text   string
}

type fakeAPI struct {
	srv *httptest.Server

	mu        sync.Mutex
	sent      []sentMessage
	files     map[string]string // file_id -> содержимое
	downloads int
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{files: map[string]string{}}
	api.srv = httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(api.srv.Close)
	return api
}

func (a *fakeAPI) addFile(id, content string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.files[id] = content
}

func (a *fakeAPI) messages() []sentMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]sentMessage(nil), a.sent...)
}

func (a *fakeAPI) texts() []string {
	var out []string
	for _, m := range a.messages() {
		out = append(out, m.Text)
	}
	return out
}

func (a *fakeAPI) downloadCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.downloads
}

func (a *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	filePrefix := "/file/bot" + testToken + "/files/"
	if strings.HasPrefix(r.URL.Path, filePrefix) {
		id := strings.TrimPrefix(r.URL.Path, filePrefix)
		a.mu.Lock()
		content, ok := a.files[id]
		a.downloads++
		a.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, content)
		return
	}

	method := strings.TrimPrefix(r.URL.Path, "/bot"+testToken+"/")
	var params map[string]string
	_ = json.NewDecoder(r.Body).Decode(&params)

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "sendMessage":
		a.mu.Lock()
		a.sent = append(a.sent, sentMessage{ChatID: params["chat_id"], Text: params["text"]})
		a.mu.Unlock()
		fmt.Fprintf(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":%s,"type":"private"}}}`, params["chat_id"])
	case "getFile":
		a.mu.Lock()
		_, ok := a.files[params["file_id"]]
		a.mu.Unlock()
		if !ok {
			fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: invalid file_id"}`)
			return
		}
		fmt.Fprintf(w, `{"ok":true,"result":{"file_id":%q,"file_path":"files/%s"}}`, params["file_id"], params["file_id"])
	default:
		fmt.Fprint(w, `{"ok":true,"result":true}`)
	}
}

// -------------------------
// Бот поверх фейкового API
// -------------------------

type capturedError struct {
	err  error
	tags map[string]string
}

type recordingReporter struct {
	mu     sync.Mutex
	errors []capturedError
}

func (r *recordingReporter) CaptureException(err error, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, capturedError{err: err, tags: tags})
}

func (r *recordingReporter) captured() []capturedError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]capturedError(nil), r.errors...)
}

// countingStore считает освобождённые сессии.
type countingStore struct {
	store.Store

	mu      sync.Mutex
	opened  int
	removed int
}

func (s *countingStore) Session(ctx context.Context) store.Session {
	s.mu.Lock()
	s.opened++
	s.mu.Unlock()
	return &countingSession{Session: s.Store.Session(ctx), parent: s}
}

func (s *countingStore) counts() (opened, removed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened, s.removed
}

type countingSession struct {
	store.Session
	parent *countingStore
}

func (s *countingSession) Remove() {
	s.parent.mu.Lock()
	s.parent.removed++
	s.parent.mu.Unlock()
	s.Session.Remove()
}

type testEnv struct {
	bot      *Bot
	api      *fakeAPI
	store    *countingStore
	reporter *recordingReporter
	root     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	api := newFakeAPI(t)
	st, err := store.Open("json", filepath.Join(t.TempDir(), "subscribers.json"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	env := &testEnv{
		api:      api,
		store:    &countingStore{Store: st},
		reporter: &recordingReporter{},
		root:     t.TempDir(),
	}

	b, err := New(Options{
		Token:       testToken,
		APIURL:      api.srv.URL,
		Store:       env.store,
		TargetDir:   env.root,
		Reporter:    env.reporter,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Offline:     true,
		Synchronous: true,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b.tb.Me = &tele.User{ID: 1, IsBot: true, Username: botUsername}
	b.username = botUsername
	env.bot = b
	return env
}

// -------------------------
// Конструкторы обновлений
// -------------------------

var (
	privateChat = &tele.Chat{ID: 100, Type: tele.ChatPrivate, Username: "alice", FirstName: "Alice"}
	groupChat   = &tele.Chat{ID: -200, Type: tele.ChatGroup, Title: "Holiday"}
	channelChat = &tele.Chat{ID: -100300, Type: tele.ChatChannel, Title: "Backups"}

	alice = &tele.User{ID: 7, Username: "Alice", FirstName: "Alice"}
)

var messageID int

func message(ch *tele.Chat, text string) *tele.Message {
	messageID++
	return &tele.Message{
		ID:       messageID,
		Chat:     ch,
		Sender:   alice,
		Text:     text,
		Unixtime: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Unix(),
	}
}

func documentMessage(ch *tele.Chat, fileID, name, mime string) *tele.Message {
	m := message(ch, "")
	m.Document = &tele.Document{File: tele.File{FileID: fileID}, FileName: name, MIME: mime}
	return m
}

func photoMessage(ch *tele.Chat, fileID string) *tele.Message {
	m := message(ch, "")
	m.Photo = &tele.Photo{File: tele.File{FileID: fileID}}
	return m
}

func (e *testEnv) send(m *tele.Message) {
	if m.Chat.Type == tele.ChatChannel {
		m.Sender = nil
		e.bot.tb.ProcessUpdate(tele.Update{ChannelPost: m})
		return
	}
	e.bot.tb.ProcessUpdate(tele.Update{Message: m})
}

func (e *testEnv) subscriber(t *testing.T, chatID int64) *subscriberView {
	t.Helper()
	s := e.store.Store.Session(context.Background())
	defer s.Remove()
	sub, err := s.Subscriber(context.Background(), chatID)
	if err != nil {
		return nil
	}
	return &subscriberView{
		Name:       sub.ChannelName,
		Active:     sub.Active,
		Verbose:    sub.Verbose,
		SortByUser: sub.SortByUser,
		Accepted:   sub.AcceptedMedia.String(),
	}
}

type subscriberView struct {
	Name       string
	Active     bool
	Verbose    bool
	SortByUser bool
	Accepted   string
}
