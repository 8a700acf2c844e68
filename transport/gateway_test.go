package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newGateway fakes the session gateway with per-path handlers.
func newGateway(t *testing.T, handlers map[string]http.HandlerFunc) *GatewayDialer {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"session_id": "s1"})
	})
	for path, handler := range handlers {
		mux.HandleFunc(path, handler)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewGatewayDialer(srv.URL, 2*time.Second)
}

func TestDialEstablishesSession(t *testing.T) {
	d := newGateway(t, nil)

	conn, err := d.Dial(context.Background(), Credentials{APIID: "1", APIHash: "h", Session: "raw"})
	require.NoError(t, err)
	assert.True(t, conn.Connected())
}

func TestSendPassesRecipientAndText(t *testing.T) {
	var got map[string]string
	d := newGateway(t, map[string]http.HandlerFunc{
		"/sessions/s1/send": func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Write([]byte("{}"))
		},
	})

	conn, err := d.Dial(context.Background(), Credentials{})
	require.NoError(t, err)
	require.NoError(t, conn.Send(context.Background(), "@dana", "hello"))
	assert.Equal(t, map[string]string{"recipient": "@dana", "text": "hello"}, got)
}

func TestSendMapsRateLimitedEnvelope(t *testing.T) {
	d := newGateway(t, map[string]http.HandlerFunc{
		"/sessions/s1/send": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":        "rate_limited",
				"wait_seconds": 42,
			})
		},
	})

	conn, err := d.Dial(context.Background(), Credentials{})
	require.NoError(t, err)

	err = conn.Send(context.Background(), "@dana", "hello")
	var rateLimited *RateLimitedError
	require.ErrorAs(t, err, &rateLimited)
	assert.Equal(t, 42*time.Second, rateLimited.Wait)
	assert.Equal(t, "rate limited: wait 42s", rateLimited.Error())
}

func TestSendMapsProtocolEnvelope(t *testing.T) {
	d := newGateway(t, map[string]http.HandlerFunc{
		"/sessions/s1/send": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":   "protocol",
				"code":    403,
				"message": "privacy restricted",
			})
		},
	})

	conn, err := d.Dial(context.Background(), Credentials{})
	require.NoError(t, err)

	err = conn.Send(context.Background(), "@dana", "hello")
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, 403, protoErr.Code)
	assert.Equal(t, "privacy restricted", protoErr.Message)
}

func TestSendOpaqueFailure(t *testing.T) {
	d := newGateway(t, map[string]http.HandlerFunc{
		"/sessions/s1/send": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "internal", "message": "db down"})
		},
	})

	conn, err := d.Dial(context.Background(), Credentials{})
	require.NoError(t, err)

	err = conn.Send(context.Background(), "@dana", "hello")
	require.Error(t, err)
	var rateLimited *RateLimitedError
	var protoErr *ProtocolError
	assert.False(t, errors.As(err, &rateLimited))
	assert.False(t, errors.As(err, &protoErr))
	assert.Contains(t, err.Error(), "db down")
}

func TestResolveReturnsIdentity(t *testing.T) {
	d := newGateway(t, map[string]http.HandlerFunc{
		"/sessions/s1/resolve": func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(Identity{ID: 9, Username: "dana", IsBot: false, HasPhoto: true})
		},
	})

	conn, err := d.Dial(context.Background(), Credentials{})
	require.NoError(t, err)

	identity, err := conn.Resolve(context.Background(), "@dana")
	require.NoError(t, err)
	assert.Equal(t, int64(9), identity.ID)
	assert.True(t, identity.HasPhoto)
}

func TestLastMessageAbsent(t *testing.T) {
	d := newGateway(t, map[string]http.HandlerFunc{
		"/sessions/s1/messages/last": func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{"message": nil})
		},
	})

	conn, err := d.Dial(context.Background(), Credentials{})
	require.NoError(t, err)

	msg, err := conn.LastMessage(context.Background(), "@dana")
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestPerformReturnsDetail(t *testing.T) {
	d := newGateway(t, map[string]http.HandlerFunc{
		"/sessions/s1/actions": func(w http.ResponseWriter, r *http.Request) {
			var in map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			json.NewEncoder(w).Encode(map[string]string{"detail": "performed " + in["action"]})
		},
	})

	conn, err := d.Dial(context.Background(), Credentials{})
	require.NoError(t, err)

	detail, err := conn.Perform(context.Background(), "read")
	require.NoError(t, err)
	assert.Equal(t, "performed read", detail)
}

func TestCloseMarksDisconnected(t *testing.T) {
	d := newGateway(t, map[string]http.HandlerFunc{
		"/sessions/s1/close": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{}"))
		},
	})

	conn, err := d.Dial(context.Background(), Credentials{})
	require.NoError(t, err)
	require.NoError(t, conn.Close())
	assert.False(t, conn.Connected())
}
