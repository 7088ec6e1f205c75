package bot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tele "gopkg.in/telebot.v3"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("чтение %s: %v", path, err)
	}
	return string(data)
}

func assertNoFiles(t *testing.T, root string) {
	t.Helper()
	var files []string
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if len(files) != 0 {
		t.Errorf("ожидалось, что файлов нет, нашли %v", files)
	}
}

// -------------------------
// Неактивный и неизвестный чат
// -------------------------

func TestMediaIgnoredForUnknownAndInactiveChats(t *testing.T) {
	env := newTestEnv(t)
	env.api.addFile("doc1", "hello")

	env.send(documentMessage(privateChat, "doc1", "report.pdf", "application/pdf"))

	env.send(message(privateChat, "/start"))
	env.send(message(privateChat, "/stop"))
	env.send(documentMessage(privateChat, "doc1", "report.pdf", "application/pdf"))

	assertNoFiles(t, env.root)
	if n := env.api.downloadCount(); n != 0 {
		t.Errorf("файл не должен был скачиваться, скачиваний: %d", n)
	}
	if n := len(env.api.messages()); n != 2 {
		t.Errorf("ожидались только ответы на /start и /stop, получили %q", env.api.texts())
	}
}

// -------------------------
// Сохранение документов
// -------------------------

func TestDocumentSavedAndNotOverwritten(t *testing.T) {
	env := newTestEnv(t)
	env.api.addFile("doc1", "first version")
	env.api.addFile("doc2", "second version")

	env.send(message(privateChat, "/start"))
	env.send(documentMessage(privateChat, "doc1", "report.pdf", "application/pdf"))

	path := filepath.Join(env.root, "alice", "report.pdf")
	if got := readFile(t, path); got != "first version" {
		t.Fatalf("содержимое %q", got)
	}

	// Дубликат без verbose — молча пропускаем.
	env.send(documentMessage(privateChat, "doc2", "report.pdf", "application/pdf"))
	// С verbose — жалуемся.
	env.send(message(privateChat, "/verbose on"))
	env.send(documentMessage(privateChat, "doc2", "report.pdf", "application/pdf"))

	if got := readFile(t, path); got != "first version" {
		t.Errorf("файл перезаписан: %q", got)
	}
	if n := env.api.downloadCount(); n != 1 {
		t.Errorf("дубликаты не должны скачиваться, скачиваний: %d", n)
	}

	texts := env.api.texts()
	if last := texts[len(texts)-1]; last != "File report.pdf already exists." {
		t.Errorf("последний ответ %q", last)
	}
	if len(texts) != 3 {
		t.Errorf("ожидалось 3 ответа, получили %q", texts)
	}
}

func TestNamelessDocumentGetsGeneratedName(t *testing.T) {
	env := newTestEnv(t)
	env.api.addFile("doc1", "{}")

	env.send(message(privateChat, "/start"))
	env.send(documentMessage(privateChat, "doc1", "", "application/json"))

	matches, err := filepath.Glob(filepath.Join(env.root, "alice", "document_2024-05-01_12-00-00_*.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("ожидался один документ со сгенерированным именем, нашли %v", matches)
	}
	if got := readFile(t, matches[0]); got != "{}" {
		t.Errorf("содержимое %q", got)
	}
}

func TestDocumentNameCannotEscapeChatDir(t *testing.T) {
	env := newTestEnv(t)
	env.api.addFile("doc1", "x")

	env.send(message(privateChat, "/start"))
	env.send(documentMessage(privateChat, "doc1", "../../etc/passwd", ""))

	if got := readFile(t, filepath.Join(env.root, "alice", "passwd")); got != "x" {
		t.Errorf("содержимое %q", got)
	}
}

// -------------------------
// Фото
// -------------------------

func TestPhotoRequiresAccept(t *testing.T) {
	env := newTestEnv(t)
	env.api.addFile("p1", "jpeg")

	env.send(message(privateChat, "/start"))
	env.send(photoMessage(privateChat, "p1"))
	assertNoFiles(t, env.root)
	if n := len(env.api.messages()); n != 1 {
		t.Fatalf("без verbose жалоб быть не должно: %q", env.api.texts())
	}

	env.send(message(privateChat, "/verbose true"))
	env.send(photoMessage(privateChat, "p1"))
	texts := env.api.texts()
	if last := texts[len(texts)-1]; !strings.HasPrefix(last, "Please send uncompressed images as files") {
		t.Errorf("ожидалась подсказка про несжатые фото, получили %q", last)
	}

	env.send(message(privateChat, "/accept document photo"))
	env.send(photoMessage(privateChat, "p1"))

	matches, _ := filepath.Glob(filepath.Join(env.root, "alice", "photo_2024-05-01_12-00-00_*.jpg"))
	if len(matches) != 1 {
		t.Fatalf("ожидалось одно фото, нашли %v", matches)
	}
}

// -------------------------
// Сортировка по пользователям
// -------------------------

func TestSortByUser(t *testing.T) {
	env := newTestEnv(t)
	env.api.addFile("doc1", "own")
	env.api.addFile("doc2", "forwarded")
	env.api.addFile("doc3", "hidden")

	env.send(message(groupChat, "/start@bot_user_name"))
	env.send(message(groupChat, "/sort_by_user@bot_user_name on"))

	env.send(documentMessage(groupChat, "doc1", "a.txt", "text/plain"))

	fwd := documentMessage(groupChat, "doc2", "b.txt", "text/plain")
	fwd.OriginalSender = &tele.User{ID: 9, FirstName: "Bob"}
	env.send(fwd)

	hidden := documentMessage(groupChat, "doc3", "c.txt", "text/plain")
	hidden.OriginalSenderName = "Carol Hidden"
	env.send(hidden)

	checks := map[string]string{
		filepath.Join(env.root, "Holiday", "alice", "a.txt"):        "own",
		filepath.Join(env.root, "Holiday", "bob", "b.txt"):          "forwarded",
		filepath.Join(env.root, "Holiday", "carol hidden", "c.txt"): "hidden",
	}
	for path, want := range checks {
		if got := readFile(t, path); got != want {
			t.Errorf("%s: содержимое %q, ожидалось %q", path, got, want)
		}
	}
}

func TestChannelPostMediaSaved(t *testing.T) {
	env := newTestEnv(t)
	env.api.addFile("doc1", "backup")

	env.send(message(channelChat, "/start@bot_user_name"))
	env.send(documentMessage(channelChat, "doc1", "db.sql", "application/sql"))

	if got := readFile(t, filepath.Join(env.root, "Backups", "db.sql")); got != "backup" {
		t.Errorf("содержимое %q", got)
	}
}

// -------------------------
// Ошибка скачивания
// -------------------------

func TestDownloadFailureReported(t *testing.T) {
	env := newTestEnv(t)

	env.send(message(privateChat, "/start"))
	env.send(documentMessage(privateChat, "missing", "lost.bin", ""))

	assertNoFiles(t, filepath.Join(env.root, "alice"))

	texts := env.api.texts()
	if last := texts[len(texts)-1]; last != unknownErrorText {
		t.Errorf("ожидался общий ответ об ошибке, получили %q", last)
	}
	captured := env.reporter.captured()
	if len(captured) != 1 {
		t.Fatalf("ожидалась одна ошибка в Sentry, получили %d", len(captured))
	}
	if captured[0].tags["chat_id"] != "100" {
		t.Errorf("теги %v", captured[0].tags)
	}

	opened, removed := env.store.counts()
	if opened != removed {
		t.Errorf("сессии: открыто %d, освобождено %d", opened, removed)
	}
}

func TestSenderName(t *testing.T) {
	tests := []struct {
		name string
		msg  *tele.Message
		want string
	}{
		{"отправитель", &tele.Message{Sender: alice}, "Alice"},
		{"пересланное", &tele.Message{Sender: alice, OriginalSender: &tele.User{ID: 5, LastName: "Smith"}}, "Smith"},
		{"пересланное без имени", &tele.Message{Sender: alice, OriginalSender: &tele.User{ID: 5}}, "5"},
		{"скрытый автор", &tele.Message{Sender: alice, OriginalSenderName: "Hidden"}, "Hidden"},
		{"из канала", &tele.Message{Sender: alice, OriginalChat: &tele.Chat{Title: "News"}}, "News"},
		{"пост канала", &tele.Message{SenderChat: &tele.Chat{Title: "Backups"}}, "Backups"},
		{"без отправителя", &tele.Message{Chat: &tele.Chat{ID: 42}}, "42"},
		{"пустое", &tele.Message{}, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := senderName(tt.msg); got != tt.want {
				t.Errorf("senderName = %q, ожидалось %q", got, tt.want)
			}
		})
	}
}
