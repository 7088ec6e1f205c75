package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(FilesSaved.WithLabelValues("document"))
	FilesSaved.WithLabelValues("document").Inc()
	if got := testutil.ToFloat64(FilesSaved.WithLabelValues("document")); got != before+1 {
		t.Errorf("files_saved = %v, ожидалось %v", got, before+1)
	}

	bytesBefore := testutil.ToFloat64(BytesSaved)
	BytesSaved.Add(1024)
	if got := testutil.ToFloat64(BytesSaved); got != bytesBefore+1024 {
		t.Errorf("bytes_saved = %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	MediaSkipped.WithLabelValues("duplicate").Inc()
	HandlerErrors.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("статус %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, name := range []string{
		`archivebot_media_skipped_total{reason="duplicate"}`,
		"archivebot_handler_errors_total",
		"archivebot_bytes_saved_total",
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("в выводе нет %s", name)
		}
	}
}
