package sink

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"license-relay-proxy/internal/model"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const ModeService = "service"

// ServiceSink authenticates with the proxy's own service account. The caller
// token is ignored.
type ServiceSink struct {
	writer documentWriter
	client *http.Client
}

var _ MessageSink = (*ServiceSink)(nil)

// NewServiceSink loads service-account credentials from credentialPath.
func NewServiceSink(ctx context.Context, credentialPath, baseURL, gcpProject string) (*ServiceSink, error) {
	// 读取凭证文件
	b, err := os.ReadFile(credentialPath)
	if err != nil {
		return nil, err
	}

	creds, err := google.CredentialsFromJSON(ctx, b, datastoreScope)
	if err != nil {
		return nil, fmt.Errorf("sink: load credentials: %w", err)
	}
	return NewServiceSinkFromTokenSource(ctx, creds.TokenSource, baseURL, gcpProject), nil
}

func NewServiceSinkFromTokenSource(ctx context.Context, ts oauth2.TokenSource, baseURL, gcpProject string) *ServiceSink {
	return &ServiceSink{
		writer: newDocumentWriter(baseURL, gcpProject),
		client: oauth2.NewClient(ctx, oauth2.ReuseTokenSource(nil, ts)),
	}
}

func (s *ServiceSink) Mode() string { return ModeService }

func (s *ServiceSink) Append(ctx context.Context, msg model.OutboundMessage, _ string) (string, error) {
	return s.writer.create(ctx, s.client, msg)
}
