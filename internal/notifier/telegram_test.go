package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"visa-rescheduler/internal/browser/browsertest"
	"visa-rescheduler/internal/config"
)

func newConfig(apiURL, token, chat string) *config.Config {
	return &config.Config{NotifierConfig: &config.NotifierConfig{
		TelegramAPIURL: apiURL,
		TelegramToken:  token,
		TelegramChatID: chat,
		Timeout:        2 * time.Second,
	}}
}

func TestNew_LogOnlyWithoutCredentials(t *testing.T) {
	n := New(Params{Config: newConfig("http://unused", "", ""), Logger: zap.NewNop()})

	_, ok := n.(*LogNotifier)
	assert.True(t, ok)
	assert.NoError(t, n.Notify(context.Background(), "hello"))
}

func TestTelegram_SendsMessage(t *testing.T) {
	var got sendMessageRequest
	var path string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := New(Params{Config: newConfig(srv.URL+"/", "TOKEN", "-1001"), Logger: zap.NewNop()})

	require.NoError(t, n.Notify(context.Background(), "Found an earlier date!"))
	assert.Equal(t, "/botTOKEN/sendMessage", path)
	assert.Equal(t, "-1001", got.ChatID)
	assert.Equal(t, "Found an earlier date!", got.Text)
}

func TestTelegram_ReportsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	n := New(Params{Config: newConfig(srv.URL, "TOKEN", "1"), Logger: zap.NewNop()})

	err := n.Notify(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestBestEffort_SwallowsFailures(t *testing.T) {
	failing := &browsertest.Notifier{Err: errors.New("network down")}
	n := NewBestEffort(failing, zap.NewNop())

	assert.NoError(t, n.Notify(context.Background(), "a"))
	assert.Equal(t, []string{"a"}, failing.Sent())
}

type panicky struct{}

func (panicky) Notify(context.Context, string) error { panic("boom") }

func TestBestEffort_SurvivesPanics(t *testing.T) {
	n := NewBestEffort(panicky{}, zap.NewNop())

	assert.NotPanics(t, func() {
		assert.NoError(t, n.Notify(context.Background(), "a"))
	})
}

func TestTruncate_CutsOnCharacters(t *testing.T) {
	long := strings.Repeat("é", maxMessageLength+10)

	got := truncate(long, maxMessageLength)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, maxMessageLength, utf8.RuneCountInString(got))
	assert.Equal(t, "short", truncate("short", maxMessageLength))

	// 4096 two-byte characters fit even though they exceed 4096 bytes.
	exact := strings.Repeat("é", maxMessageLength)
	assert.Equal(t, exact, truncate(exact, maxMessageLength))
}
