package sink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"license-relay-proxy/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

type capturedRequest struct {
	Path          string
	Authorization string
	Body          map[string]interface{}
}

func newFirestore(t *testing.T, status int, respBody string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var reqs []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		_ = json.Unmarshal(raw, &body)
		reqs = append(reqs, capturedRequest{
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			Body:          body,
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, respBody)
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func testMessage(files ...string) model.OutboundMessage {
	return model.OutboundMessage{
		ProjectID: "proj-1",
		Content:   "hello",
		Role:      model.RoleUser,
		Timestamp: time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC),
		Files:     files,
	}
}

func TestDelegatedSinkAppend(t *testing.T) {
	name := "projects/gcp/databases/(default)/documents/projects/proj-1/messages/m1"
	srv, reqs := newFirestore(t, http.StatusOK, `{"name":"`+name+`"}`)

	s := NewDelegatedSink(srv.URL, "gcp", srv.Client())
	assert.Equal(t, ModeDelegated, s.Mode())

	id, err := s.Append(context.Background(), testMessage("f1", "f2"), "caller-token")
	require.NoError(t, err)
	assert.Equal(t, name, id)

	require.Len(t, *reqs, 1)
	got := (*reqs)[0]
	assert.Equal(t, "/v1/projects/gcp/databases/(default)/documents/projects/proj-1/messages", got.Path)
	assert.Equal(t, "Bearer caller-token", got.Authorization)

	fields := got.Body["fields"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"stringValue": "hello"}, fields["content"])
	assert.Equal(t, map[string]interface{}{"stringValue": "user"}, fields["role"])
	assert.Equal(t, map[string]interface{}{"timestampValue": "2026-10-16T12:00:00Z"}, fields["timestamp"])
	files := fields["files"].(map[string]interface{})["arrayValue"].(map[string]interface{})["values"].([]interface{})
	assert.Len(t, files, 2)
}

func TestDelegatedSinkOmitsEmptyFiles(t *testing.T) {
	srv, reqs := newFirestore(t, http.StatusOK, `{"name":"m1"}`)
	s := NewDelegatedSink(srv.URL, "gcp", srv.Client())

	_, err := s.Append(context.Background(), testMessage(), "caller-token")
	require.NoError(t, err)

	fields := (*reqs)[0].Body["fields"].(map[string]interface{})
	_, hasFiles := fields["files"]
	assert.False(t, hasFiles)
}

func TestDelegatedSinkUpstreamFailure(t *testing.T) {
	srv, _ := newFirestore(t, http.StatusForbidden, `{"error":{"code":403,"message":"denied"}}`)
	s := NewDelegatedSink(srv.URL, "gcp", srv.Client())

	_, err := s.Append(context.Background(), testMessage(), "expired")
	require.Error(t, err)

	var gerr *googleapi.Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, http.StatusForbidden, gerr.Code)
	assert.Contains(t, gerr.Body, "denied")
}

func TestDelegatedSinkRequiresToken(t *testing.T) {
	srv, reqs := newFirestore(t, http.StatusOK, `{"name":"m1"}`)
	s := NewDelegatedSink(srv.URL, "gcp", srv.Client())

	_, err := s.Append(context.Background(), testMessage(), "")
	assert.Error(t, err)
	assert.Empty(t, *reqs)
}

func TestServiceSinkUsesOwnCredentials(t *testing.T) {
	srv, reqs := newFirestore(t, http.StatusOK, `{"name":"m2"}`)
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, srv.Client())
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "service-token", TokenType: "Bearer"})

	s := NewServiceSinkFromTokenSource(ctx, ts, srv.URL, "gcp")
	assert.Equal(t, ModeService, s.Mode())

	id, err := s.Append(context.Background(), testMessage(), "caller-token")
	require.NoError(t, err)
	assert.Equal(t, "m2", id)
	assert.Equal(t, "Bearer service-token", (*reqs)[0].Authorization)
}

func TestNewServiceSinkMissingFile(t *testing.T) {
	_, err := NewServiceSink(context.Background(), "does-not-exist.json", "http://localhost", "gcp")
	assert.Error(t, err)
}
