package supabase

import (
	"context"
	"fmt"
)

// Functions returns the edge-functions client.
func (c *Client) Functions() *FunctionsClient {
	return &FunctionsClient{client: c}
}

// FunctionsClient invokes Supabase edge functions.
type FunctionsClient struct {
	client *Client
}

// Invoke POSTs body as JSON to the named function and decodes the reply
// into out when out is non-nil.
func (f *FunctionsClient) Invoke(ctx context.Context, name string, body, out any) error {
	reqURL := fmt.Sprintf("%s/functions/v1/%s", f.client.baseURL, name)
	resp, err := f.client.postJSON(ctx, reqURL, body, nil)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.JSON(out)
}
