// Package sink appends relayed chat messages to the per-project Firestore
// "messages" collection.
//
// Two variants share one REST writer and differ only in credentials:
// DelegatedSink authenticates with the caller's short-lived bearer token,
// ServiceSink with a service account owned by the proxy.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"license-relay-proxy/internal/model"

	"google.golang.org/api/googleapi"
)

// MessageSink appends one message and returns the identifier assigned by the store.
// Upstream HTTP failures are returned as *googleapi.Error.
type MessageSink interface {
	Append(ctx context.Context, msg model.OutboundMessage, authToken string) (string, error)
	Mode() string
}

const datastoreScope = "https://www.googleapis.com/auth/datastore"

// documentWriter builds the Firestore REST document and posts it.
type documentWriter struct {
	baseURL    string
	gcpProject string
}

func newDocumentWriter(baseURL, gcpProject string) documentWriter {
	return documentWriter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		gcpProject: gcpProject,
	}
}

func (w documentWriter) collectionURL(projectID string) string {
	return fmt.Sprintf("%s/v1/projects/%s/databases/(default)/documents/projects/%s/messages",
		w.baseURL, url.PathEscape(w.gcpProject), url.PathEscape(projectID))
}

type value struct {
	StringValue    *string     `json:"stringValue,omitempty"`
	TimestampValue string      `json:"timestampValue,omitempty"`
	ArrayValue     *arrayValue `json:"arrayValue,omitempty"`
}

type arrayValue struct {
	Values []value `json:"values"`
}

type document struct {
	Name   string           `json:"name,omitempty"`
	Fields map[string]value `json:"fields,omitempty"`
}

func stringValue(s string) value {
	return value{StringValue: &s}
}

func encodeDocument(msg model.OutboundMessage) document {
	doc := document{Fields: map[string]value{
		"content":   stringValue(msg.Content),
		"role":      stringValue(msg.Role),
		"timestamp": {TimestampValue: msg.Timestamp.UTC().Format(time.RFC3339Nano)},
	}}
	if len(msg.Files) > 0 {
		values := make([]value, 0, len(msg.Files))
		for _, f := range msg.Files {
			values = append(values, stringValue(f))
		}
		doc.Fields["files"] = value{ArrayValue: &arrayValue{Values: values}}
	}
	return doc
}

func (w documentWriter) create(ctx context.Context, client *http.Client, msg model.OutboundMessage) (string, error) {
	body, err := json.Marshal(encodeDocument(msg))
	if err != nil {
		return "", fmt.Errorf("sink: encode document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.collectionURL(msg.ProjectID), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("sink: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sink: post document: %w", err)
	}
	defer googleapi.CloseBody(res)

	if err := googleapi.CheckResponse(res); err != nil {
		return "", err
	}

	var created document
	if err := json.NewDecoder(res.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("sink: decode response: %w", err)
	}
	return created.Name, nil
}
