package sink

import (
	"context"
	"errors"
	"net/http"

	"license-relay-proxy/internal/model"

	"golang.org/x/oauth2"
)

const ModeDelegated = "delegated"

// DelegatedSink forwards the caller's bearer token. The token is used for a
// single request and never stored.
type DelegatedSink struct {
	writer documentWriter
	base   *http.Client
}

var _ MessageSink = (*DelegatedSink)(nil)

// NewDelegatedSink returns a sink that posts to baseURL. base may be nil, in
// which case http.DefaultClient carries the requests.
func NewDelegatedSink(baseURL, gcpProject string, base *http.Client) *DelegatedSink {
	return &DelegatedSink{writer: newDocumentWriter(baseURL, gcpProject), base: base}
}

func (s *DelegatedSink) Mode() string { return ModeDelegated }

func (s *DelegatedSink) Append(ctx context.Context, msg model.OutboundMessage, authToken string) (string, error) {
	if authToken == "" {
		return "", errors.New("sink: missing caller token")
	}
	clientCtx := ctx
	if s.base != nil {
		clientCtx = context.WithValue(ctx, oauth2.HTTPClient, s.base)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: authToken, TokenType: "Bearer"})
	return s.writer.create(ctx, oauth2.NewClient(clientCtx, ts), msg)
}
