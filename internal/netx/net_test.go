package netx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWebSocketURL(t *testing.T) {
	cases := []struct {
		base, path, want string
	}{
		{"http://localhost:8000", "/ws/3", "ws://localhost:8000/ws/3"},
		{"https://dome.example.com/api", "ws/3", "wss://dome.example.com/ws/3"},
		{"ws://10.0.0.1:9000/", "/ws/1", "ws://10.0.0.1:9000/ws/1"},
		{"wss://h?x=1#frag", "/ws/2", "wss://h/ws/2"},
	}
	for _, tc := range cases {
		t.Run(tc.base, func(t *testing.T) {
			got, err := WebSocketURL(tc.base, tc.path)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestWebSocketURL_Errors(t *testing.T) {
	_, err := WebSocketURL("ftp://host", "/ws/1")
	require.ErrorContains(t, err, "unsupported")

	_, err = WebSocketURL("http://", "/ws/1")
	require.ErrorContains(t, err, "no host")

	_, err = WebSocketURL("http://a b", "/ws/1")
	require.Error(t, err)
}

func TestJoinURL(t *testing.T) {
	require.Equal(t, "http://h/api", JoinURL("http://h/", "/api/"))
	require.Equal(t, "http://h", JoinURL("http://h", ""))
	require.Equal(t, "http://h/v1/api", JoinURL("http://h/v1", "api"))
}
