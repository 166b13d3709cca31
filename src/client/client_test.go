package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarduel/src/app/http/dto"
	"scholarduel/src/core/domain"
)

func fakeServer(t *testing.T, duelID uuid.UUID, events []dto.EventResponse) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.GET("/v1/duels/:duel_id", func(c *gin.Context) {
		if c.GetHeader("Authorization") != "Bearer tok" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": "UNAUTHORIZED", "message": "missing session token"}})
			return
		}
		if c.Param("duel_id") != duelID.String() {
			c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "resource not found: duel"}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": dto.DuelDetailResponse{
			Duel:   dto.DuelResponse{ID: duelID, Status: "active", Topic: "Replication crisis"},
			Rounds: []dto.RoundResponse{{ID: uuid.New(), DuelID: duelID, RoundNumber: 1}},
		}})
	})

	upgrader := websocket.Upgrader{}
	r.GET("/v1/realtime", func(c *gin.Context) {
		assert.Equal(t, duelID.String(), c.Query("duel_id"))
		assert.Equal(t, "Bearer tok", c.GetHeader("Authorization"))
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, ev := range events {
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	})

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func TestClientGetDuel(t *testing.T) {
	duelID := uuid.New()
	ts := fakeServer(t, duelID, nil)

	detail, err := New(ts.URL, "tok").GetDuel(context.Background(), duelID)
	require.NoError(t, err)
	assert.Equal(t, "Replication crisis", detail.Duel.Topic)
	assert.Len(t, detail.Rounds, 1)

	_, err = New(ts.URL, "tok").GetDuel(context.Background(), uuid.New())
	assert.True(t, IsNotFound(err))

	_, err = New(ts.URL, "wrong").GetDuel(context.Background(), duelID)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "UNAUTHORIZED", apiErr.Code)
}

func TestClientStreamFeedsView(t *testing.T) {
	duelID := uuid.New()
	dup := roundEvent(duelID, 1)
	events := []dto.EventResponse{dup, dup, roundEvent(duelID, 1), {
		ID: uuid.New(), Type: string(domain.EventDuelUpdated), DuelID: duelID,
		Duel: &dto.DuelResponse{ID: duelID, Status: "active", UpdatedAt: time.Now()},
	}}
	ts := fakeServer(t, duelID, events)

	view := NewDuelView(duelID)
	var received int
	err := New(ts.URL, "tok").Stream(context.Background(), duelID, func(ev dto.EventResponse) error {
		received++
		view.ApplyEvent(ev)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 4, received)
	assert.Len(t, view.Rounds(), 2)
	assert.True(t, view.NeedsRefresh)
}

func TestClientStreamStopsOnCancel(t *testing.T) {
	duelID := uuid.New()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	upgrader := websocket.Upgrader{}
	r.GET("/v1/realtime", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	ts := httptest.NewServer(r)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := New(ts.URL, "tok").Stream(ctx, duelID, func(dto.EventResponse) error { return nil })
	assert.NoError(t, err)
}
