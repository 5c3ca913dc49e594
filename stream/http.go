// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

package stream // import "github.com/Falcon-OS/platform-external-perfetto/stream"

import (
	"context"
	"fmt"
	"net/http"
)

// OpenHTTP fetches a trace over HTTP(S) as a Source. The response body is
// streamed, not buffered; ctx covers the whole download. Servers that do
// not announce a Content-Length yield chunks with BytesTotal 0.
func OpenHTTP(ctx context.Context, client *http.Client, url string) (*Reader, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewStreamError(url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, NewStreamError(url, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, NewStreamError(url, fmt.Errorf("unexpected status %s", resp.Status))
	}
	total := resp.ContentLength
	if total < 0 {
		total = 0
	}
	return NewReader(url, resp.Body, total)
}
