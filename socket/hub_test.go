package socket

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kolabdok/internal/document/repository"
	"kolabdok/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	m.Run()
}

// outbound is the superset of server→client message shapes, for assertions.
type outbound struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Count   int    `json:"count"`
}

func readMessage(t *testing.T, conn *websocket.Conn) outbound {
	t.Helper()
	var msg outbound
	conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	_, p, err := conn.ReadMessage()
	require.NoError(t, err, "Failed to read message from WebSocket")
	err = json.Unmarshal(p, &msg)
	require.NoError(t, err, "Failed to unmarshal message JSON")
	return msg
}

func assertNoMessage(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	require.Error(t, err, "Expected no message but one was delivered")
	var netErr interface{ Timeout() bool }
	require.True(t, errors.As(err, &netErr) && netErr.Timeout(), "Expected a read timeout, got: %v", err)
}

func sendJSON(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	payload, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))
}

func newTestHub(t *testing.T) (*Hub, sqlmock.Sqlmock, string) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	hub := NewHub(repository.NewDocumentRepository(db))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The real router resolves the user from the session token; tests
		// pass the id directly.
		userID := r.URL.Query().Get("user_id")
		ServeWs(hub, w, r, userID)
	}))
	t.Cleanup(server.Close)

	return hub, mock, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, wsURL, userID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws?user_id="+userID, nil)
	require.NoError(t, err, "Failed to connect client %s", userID)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func join(t *testing.T, conn *websocket.Conn, docID, userID string) {
	t.Helper()
	sendJSON(t, conn, map[string]string{"type": MessageJoin, "documentId": docID, "userId": userID})
}

func roomCount(h *Hub) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func TestPresenceAccounting(t *testing.T) {
	hub, _, wsURL := newTestHub(t)
	docID := "doc-presence"

	conn1 := dial(t, wsURL, "user1")
	join(t, conn1, docID, "user1")

	msg := readMessage(t, conn1)
	assert.Equal(t, MessageCollaboratorsUpdate, msg.Type)
	assert.Equal(t, 1, msg.Count)

	conn2 := dial(t, wsURL, "user2")
	join(t, conn2, docID, "user2")

	// Both subscribers, including the one that just joined, see count 2.
	msg = readMessage(t, conn1)
	assert.Equal(t, MessageCollaboratorsUpdate, msg.Type)
	assert.Equal(t, 2, msg.Count)
	msg = readMessage(t, conn2)
	assert.Equal(t, MessageCollaboratorsUpdate, msg.Type)
	assert.Equal(t, 2, msg.Count)

	// One leaves; the remainder is told.
	conn2.Close()
	msg = readMessage(t, conn1)
	assert.Equal(t, MessageCollaboratorsUpdate, msg.Type)
	assert.Equal(t, 1, msg.Count)

	// Last leave retires the registry entry.
	conn1.Close()
	assert.Eventually(t, func() bool { return roomCount(hub) == 0 },
		time.Second, 10*time.Millisecond, "Empty room should be removed from the registry")

	// A fresh join starts an empty-to-one transition again.
	conn3 := dial(t, wsURL, "user3")
	join(t, conn3, docID, "user3")
	msg = readMessage(t, conn3)
	assert.Equal(t, MessageCollaboratorsUpdate, msg.Type)
	assert.Equal(t, 1, msg.Count)
}

func TestContentChangeFanOut(t *testing.T) {
	_, mock, wsURL := newTestHub(t)
	docID := "doc-fanout"

	conn1 := dial(t, wsURL, "user1")
	join(t, conn1, docID, "user1")
	_ = readMessage(t, conn1) // count 1

	conn2 := dial(t, wsURL, "user2")
	join(t, conn2, docID, "user2")
	_ = readMessage(t, conn1) // count 2
	_ = readMessage(t, conn2) // count 2

	// U1 writes "Hello": persisted, then delivered to U2 only.
	mock.ExpectQuery("UPDATE documents SET content").
		WithArgs("Hello", docID).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

	sendJSON(t, conn1, map[string]string{"type": MessageContentChange, "documentId": docID, "userId": "user1", "content": "Hello"})

	msg := readMessage(t, conn2)
	assert.Equal(t, MessageContentUpdate, msg.Type)
	assert.Equal(t, "Hello", msg.Content)
	assertNoMessage(t, conn1)

	// U2 writes on top: last writer wins, U1 observes only the newer state.
	mock.ExpectQuery("UPDATE documents SET content").
		WithArgs("Hello world", docID).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

	sendJSON(t, conn2, map[string]string{"type": MessageContentChange, "documentId": docID, "userId": "user2", "content": "Hello world"})

	msg = readMessage(t, conn1)
	assert.Equal(t, MessageContentUpdate, msg.Type)
	assert.Equal(t, "Hello world", msg.Content)
	assertNoMessage(t, conn2)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentUpdateOrdering(t *testing.T) {
	_, mock, wsURL := newTestHub(t)
	docID := "doc-order"

	writer := dial(t, wsURL, "writer")
	join(t, writer, docID, "writer")
	_ = readMessage(t, writer)

	observer := dial(t, wsURL, "observer")
	join(t, observer, docID, "observer")
	_ = readMessage(t, writer)
	_ = readMessage(t, observer)

	// Two changes from the same connection are processed in order; the
	// observer must never see them reversed.
	mock.ExpectQuery("UPDATE documents SET content").
		WithArgs("v1", docID).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))
	mock.ExpectQuery("UPDATE documents SET content").
		WithArgs("v2", docID).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

	sendJSON(t, writer, map[string]string{"type": MessageContentChange, "documentId": docID, "content": "v1"})
	sendJSON(t, writer, map[string]string{"type": MessageContentChange, "documentId": docID, "content": "v2"})

	first := readMessage(t, observer)
	second := readMessage(t, observer)
	assert.Equal(t, "v1", first.Content)
	assert.Equal(t, "v2", second.Content)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistFailureSuppressesBroadcast(t *testing.T) {
	_, mock, wsURL := newTestHub(t)
	docID := "doc-persist-fail"

	conn1 := dial(t, wsURL, "user1")
	join(t, conn1, docID, "user1")
	_ = readMessage(t, conn1)

	conn2 := dial(t, wsURL, "user2")
	join(t, conn2, docID, "user2")
	_ = readMessage(t, conn1)
	_ = readMessage(t, conn2)

	mock.ExpectQuery("UPDATE documents SET content").
		WithArgs("doomed", docID).
		WillReturnError(errors.New("connection refused"))

	sendJSON(t, conn1, map[string]string{"type": MessageContentChange, "documentId": docID, "content": "doomed"})
	assertNoMessage(t, conn2)

	// The failure terminated only that message; the connection still works.
	mock.ExpectQuery("UPDATE documents SET content").
		WithArgs("recovered", docID).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

	sendJSON(t, conn1, map[string]string{"type": MessageContentChange, "documentId": docID, "content": "recovered"})
	msg := readMessage(t, conn2)
	assert.Equal(t, "recovered", msg.Content)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMalformedMessagesDropped(t *testing.T) {
	_, mock, wsURL := newTestHub(t)
	docID := "doc-malformed"

	conn1 := dial(t, wsURL, "user1")
	join(t, conn1, docID, "user1")
	_ = readMessage(t, conn1)

	conn2 := dial(t, wsURL, "user2")
	join(t, conn2, docID, "user2")
	_ = readMessage(t, conn1)
	_ = readMessage(t, conn2)

	// Garbage, an unknown tag, and a content-change before join are all
	// dropped without killing anything.
	require.NoError(t, conn1.WriteMessage(websocket.TextMessage, []byte("{not json")))
	sendJSON(t, conn1, map[string]string{"type": "cursor-move", "documentId": docID})

	outsider := dial(t, wsURL, "user3")
	sendJSON(t, outsider, map[string]string{"type": MessageContentChange, "documentId": docID, "content": "sneaky"})
	assertNoMessage(t, conn2)

	mock.ExpectQuery("UPDATE documents SET content").
		WithArgs("still alive", docID).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

	sendJSON(t, conn1, map[string]string{"type": MessageContentChange, "documentId": docID, "content": "still alive"})
	msg := readMessage(t, conn2)
	assert.Equal(t, "still alive", msg.Content)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveDocumentEvictsSubscribers(t *testing.T) {
	hub, _, wsURL := newTestHub(t)
	docID := "doc-removed"

	conn1 := dial(t, wsURL, "user1")
	join(t, conn1, docID, "user1")
	_ = readMessage(t, conn1)

	hub.RemoveDocument(docID)

	conn1.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn1.ReadMessage()
	assert.Error(t, err, "Eviction should close the subscriber connection")
	assert.Eventually(t, func() bool { return roomCount(hub) == 0 },
		time.Second, 10*time.Millisecond)
}

func TestBroadcastContentUpdateFromAPI(t *testing.T) {
	hub, _, wsURL := newTestHub(t)
	docID := "doc-api-save"

	conn1 := dial(t, wsURL, "user1")
	join(t, conn1, docID, "user1")
	_ = readMessage(t, conn1)

	conn2 := dial(t, wsURL, "user2")
	join(t, conn2, docID, "user2")
	_ = readMessage(t, conn1)
	_ = readMessage(t, conn2)

	// A save through the HTTP API fans out to everyone but the saver.
	hub.BroadcastContentUpdate(docID, "user1", "saved via api")

	msg := readMessage(t, conn2)
	assert.Equal(t, MessageContentUpdate, msg.Type)
	assert.Equal(t, "saved via api", msg.Content)
	assertNoMessage(t, conn1)
}
