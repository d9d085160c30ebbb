// Package http forwards record batches to a remote collector.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"

	"github.com/dotbot-tools/rxtrace/internal/domain"
	"github.com/dotbot-tools/rxtrace/internal/ports"
)

const recordsEndpoint = "/v1/records"

// ForwardedRecord is one NDJSON line of a forwarded batch.
type ForwardedRecord struct {
	Key string `json:"key"`
	domain.StoredRecord
}

// RecordForwarder implements ports.RecordForwarder using HTTP.
type RecordForwarder struct {
	client ports.HTTPClient
	logger ports.Logger
}

// NewRecordForwarder creates a new HTTP record forwarder.
func NewRecordForwarder(client ports.HTTPClient, logger ports.Logger) *RecordForwarder {
	return &RecordForwarder{
		client: client,
		logger: logger,
	}
}

// Forward posts the batch as newline-delimited JSON.
func (f *RecordForwarder) Forward(ctx context.Context, batch *domain.Batch, metadata ports.ForwardMetadata) error {
	if batch.Empty() {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for i, rec := range batch.Records {
		if err := enc.Encode(ForwardedRecord{Key: batch.Keys[i], StoredRecord: rec.ToStored()}); err != nil {
			return fmt.Errorf("encode record %d: %w", i, err)
		}
	}

	url := strings.TrimRight(metadata.ServiceURL, "/") + recordsEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if metadata.AuthKey != "" {
		req.Header.Set("Authorization", "Bearer "+metadata.AuthKey)
	}
	req.Header.Set("Content-Type", "application/x-ndjson")
	req.Header.Set("X-Rxtrace-Hostname", metadata.Hostname)
	req.Header.Set("X-Rxtrace-OSArch", runtime.GOOS+"/"+runtime.GOARCH)
	req.Header.Set("X-Rxtrace-Source", metadata.Source)
	req.Header.Set("X-Rxtrace-Trailer", metadata.TrailerVersion)

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}
	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)

	f.logger.Debug("batch accepted",
		ports.Int("records", batch.Size()),
		ports.Int("status", resp.StatusCode),
	)
	return nil
}
