package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// apiClient is the only path from the pipeline to the network.
type apiClient struct {
	fetcher Fetcher
	limiter Limiter
}

// getJSON fetches url and decodes a 200 response into dest.
func (c apiClient) getJSON(ctx context.Context, url string, dest any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, url); err != nil {
			return fmt.Errorf("wait for %s: %w", url, err)
		}
	}
	resp, err := c.fetcher.Fetch(ctx, FetchRequest{
		URL:     url,
		Headers: http.Header{"Accept": {"application/json"}},
	})
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		return &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	if err := json.Unmarshal(resp.Body, dest); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
