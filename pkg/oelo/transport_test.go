package oelo

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/oelohome/oelod/internal/errors"
)

// mockController creates a test server that behaves like an Oelo controller.
func mockController(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var setPatternQueries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/getController":
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode([]map[string]any{
				{"zone": 1, "patternType": "solid", "colors": []string{"FF0000"}, "brightness": 80, "speed": 0, "power": 1},
				{"zone": 2, "patternType": "chase", "colors": []string{"00FF00", "0000FF"}, "brightness": 60, "speed": 3, "power": 1},
			})
		case "/setPattern":
			setPatternQueries = append(setPatternQueries, r.URL.RawQuery)
			io.WriteString(w, "OK")
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
	return srv, &setPatternQueries
}

func testTransport(t *testing.T, srv *httptest.Server) *Transport {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTransport(strings.TrimPrefix(srv.URL, "http://"), 2*time.Second, logger, srv.Client())
}

func TestGetController(t *testing.T) {
	srv, _ := mockController(t)
	defer srv.Close()

	tr := testTransport(t, srv)
	zones, err := tr.GetController(context.Background())
	require.NoError(t, err)
	require.Len(t, zones, 2)
	assert.Equal(t, 1, zones[0].Zone)
	assert.Equal(t, "solid", zones[0].PatternType)
	assert.Equal(t, []string{"FF0000"}, zones[0].Colors)
	assert.Equal(t, 80, zones[0].Brightness)
	assert.Equal(t, 1, zones[0].On)
	assert.Equal(t, "chase", zones[1].PatternType)
}

func TestSetPatternEncodesZone(t *testing.T) {
	srv, queries := mockController(t)
	defer srv.Close()

	tr := testTransport(t, srv)
	err := tr.SetPattern(context.Background(), ZoneState{
		Zone:        3,
		PatternType: "solid",
		Colors:      []string{"FFAA00", "112233"},
		Brightness:  90,
		Speed:       2,
		On:          1,
	})
	require.NoError(t, err)
	require.Len(t, *queries, 1)
	q := (*queries)[0]
	assert.Contains(t, q, "zones=3")
	assert.Contains(t, q, "patternType=solid")
	assert.Contains(t, q, "brightness=90")
	assert.Contains(t, q, "speed=2")
	assert.Contains(t, q, "power=1")
	assert.Contains(t, q, "colors=FFAA00%2C112233")
}

func TestGetControllerUnreachable(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	// Nothing listens here; connect fails fast.
	tr := NewTransport("127.0.0.1:1", 1*time.Second, logger)

	_, err := tr.GetController(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsUnreachable(err), "expected Unreachable, got: %v", err)
	assert.False(t, apperrors.IsProtocol(err))
}

func TestGetControllerTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer slow.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tr := NewTransport(strings.TrimPrefix(slow.URL, "http://"), time.Second, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := tr.GetController(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsTimeout(err), "expected Timeout, got: %v", err)
}

func TestGetControllerProtocolError(t *testing.T) {
	t.Run("malformed json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte("{not valid json"))
		}))
		defer srv.Close()

		tr := testTransport(t, srv)
		_, err := tr.GetController(context.Background())
		require.Error(t, err)
		assert.True(t, apperrors.IsProtocol(err))
	})

	t.Run("non-array body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte("null"))
		}))
		defer srv.Close()

		tr := testTransport(t, srv)
		_, err := tr.GetController(context.Background())
		require.Error(t, err)
		assert.True(t, apperrors.IsProtocol(err))
	})

	t.Run("http error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		tr := testTransport(t, srv)
		_, err := tr.GetController(context.Background())
		require.Error(t, err)
		assert.True(t, apperrors.IsProtocol(err))

		err = tr.SetPattern(context.Background(), ZoneState{Zone: 1, PatternType: "solid"})
		require.Error(t, err)
		assert.True(t, apperrors.IsProtocol(err))
	})
}

func TestLightStateCloneAndEqual(t *testing.T) {
	s := LightState{Zones: []ZoneState{
		{Zone: 1, PatternType: "solid", Colors: []string{"FF0000"}, Brightness: 80, On: 1},
	}}
	c := s.Clone()
	assert.True(t, s.Equal(c))

	// Mutating the clone must not touch the original.
	c.Zones[0].Colors[0] = "000000"
	assert.Equal(t, "FF0000", s.Zones[0].Colors[0])
	assert.False(t, s.Equal(c))

	assert.False(t, s.Equal(LightState{}))
}
