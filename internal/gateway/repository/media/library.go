package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// MaxFetchBytes bounds remote downloads.
const MaxFetchBytes = 512 << 20

// Library exposes a Store through public URLs of the form {base}/{hash}.
// URLs under base are resolved from the store; any other URL is fetched
// over HTTP.
type Library struct {
	store   Store
	baseURL string
	http    *http.Client
}

func NewLibrary(store Store, baseURL string, httpClient *http.Client) *Library {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Library{store: store, baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"), http: httpClient}
}

func (l *Library) Store() Store { return l.store }

func (l *Library) URL(hash string) string { return l.baseURL + "/" + hash }

// HashOf returns the digest addressed by u when u points into this library.
func (l *Library) HashOf(u string) (string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(u), l.baseURL+"/")
	if !ok || !ValidHash(rest) {
		return "", false
	}
	return rest, true
}

// Put stores data and returns its public URL.
func (l *Library) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	h, err := l.store.Put(ctx, data, contentType)
	if err != nil {
		return "", err
	}
	return l.URL(h), nil
}

func (l *Library) Fetch(ctx context.Context, u string) ([]byte, string, error) {
	if h, ok := l.HashOf(u); ok {
		obj, err := l.store.Get(ctx, h)
		if err != nil {
			return nil, "", err
		}
		return obj.Data, obj.ContentType, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := l.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, "", fmt.Errorf("fetch %s: status %d", u, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxFetchBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) > MaxFetchBytes {
		return nil, "", fmt.Errorf("fetch %s: larger than %d bytes", u, MaxFetchBytes)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// Import copies the content at u into the store and returns its URL.
func (l *Library) Import(ctx context.Context, u string) (string, error) {
	if _, ok := l.HashOf(u); ok {
		return u, nil
	}
	data, ct, err := l.Fetch(ctx, u)
	if err != nil {
		return "", err
	}
	return l.Put(ctx, data, ct)
}
