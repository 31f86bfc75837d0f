package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RemoteStore keeps settings under one key of an HTTP key-value service
// (GET/PUT /kv/{key}, bearer auth).
type RemoteStore struct {
	baseURL    string
	apiKey     string
	key        string
	httpClient *http.Client
}

func NewRemoteStore(baseURL, apiKey, key string) *RemoteStore {
	return &RemoteStore{
		baseURL: baseURL,
		apiKey:  apiKey,
		key:     key,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type kvRequest struct {
	Value     any    `json:"value"`
	MergeMode string `json:"merge_mode,omitempty"`
	Source    string `json:"source,omitempty"`
}

type kvResponse struct {
	Key   string `json:"key_path"`
	Value any    `json:"value"`
}

func (c *RemoteStore) Load(ctx context.Context) (Settings, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/kv/"+c.key, nil)
	if err != nil {
		return Default(), fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Default(), fmt.Errorf("get settings: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return Default(), nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Default(), fmt.Errorf("get settings %s: status %d: %s", c.key, resp.StatusCode, string(body))
	}

	var node kvResponse
	if err := json.NewDecoder(resp.Body).Decode(&node); err != nil {
		return Default(), fmt.Errorf("decode settings: %w", err)
	}
	m, _ := node.Value.(map[string]any)
	return FromMap(m), nil
}

func (c *RemoteStore) Save(ctx context.Context, s Settings) error {
	body, err := json.Marshal(kvRequest{
		Value:     s.Normalize().ToMap(),
		MergeMode: "replace",
		Source:    "bionic",
	})
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/kv/"+c.key, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("put settings: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("put settings %s: status %d: %s", c.key, resp.StatusCode, string(respBody))
	}
	return nil
}

// Close releases idle connections.
func (c *RemoteStore) Close() {
	c.httpClient.CloseIdleConnections()
}
