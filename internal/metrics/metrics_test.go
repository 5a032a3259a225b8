package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	c := NewCollector(Namespace)
	c.ObserveReply(200*time.Millisecond, false)
	c.ObserveReply(time.Second, true)
	c.ObserveReply(time.Second, true)
	c.RecordMessage(false)
	c.RecordMessage(true)
	c.RecordTranscription(false)
	c.RecordJournalSave()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Replies.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Replies.WithLabelValues("fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Messages.WithLabelValues("voice")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Transcriptions.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.JournalSaves))
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector(Namespace)
	b := NewCollector(Namespace)
	a.RecordJournalSave()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.JournalSaves))
}

func TestHandler(t *testing.T) {
	c := NewCollector(Namespace)
	c.RecordMessage(false)
	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `mindmate_messages_total{source="text"} 1`)
}
