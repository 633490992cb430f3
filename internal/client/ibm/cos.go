package ibm

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"capbudget/internal/config"
)

// ObjectStore talks to an S3-style Cloud Object Storage bucket. Every request
// carries the cached bearer token plus the service-instance-id header; a 401
// invalidates the token and retries once before surfacing the error.
type ObjectStore struct {
	endpoint          string
	bucket            string
	serviceInstanceID string
	tokens            *TokenCache
	httpClient        *http.Client
}

type ObjectInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at,omitempty"`
	URL        string    `json:"url,omitempty"`
	ETag       string    `json:"etag,omitempty"`
}

func NewObjectStore(httpClient *http.Client, cfg config.COSConfig, tokens *TokenCache) *ObjectStore {
	return &ObjectStore{
		endpoint:          strings.TrimRight(cfg.Endpoint, "/"),
		bucket:            cfg.Bucket,
		serviceInstanceID: cfg.ServiceInstanceID,
		tokens:            tokens,
		httpClient:        httpClient,
	}
}

func (s *ObjectStore) FileURL(name string) string {
	return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, url.PathEscape(name))
}

func (s *ObjectStore) Upload(ctx context.Context, name string, body []byte, contentType string) (ObjectInfo, error) {
	resp, err := s.do(ctx, http.MethodPut, s.FileURL(name), body, contentType)
	if err != nil {
		return ObjectInfo{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ObjectInfo{}, remoteErr("upload "+name, resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return ObjectInfo{
		Name: name,
		Size: int64(len(body)),
		URL:  s.FileURL(name),
		ETag: resp.Header.Get("ETag"),
	}, nil
}

func (s *ObjectStore) Download(ctx context.Context, name string) ([]byte, error) {
	resp, err := s.do(ctx, http.MethodGet, s.FileURL(name), nil, "")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &NotFoundError{Key: name}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, remoteErr("download "+name, resp)
	}
	return io.ReadAll(resp.Body)
}

// Exists is a HEAD-style probe. It never returns an error; any failure,
// including transport errors, reads as "not there".
func (s *ObjectStore) Exists(ctx context.Context, name string) bool {
	resp, err := s.do(ctx, http.MethodHead, s.FileURL(name), nil, "")
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (s *ObjectStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	u := s.endpoint + "/" + s.bucket
	if prefix != "" {
		q := url.Values{}
		q.Set("prefix", prefix)
		u += "?" + q.Encode()
	}
	resp, err := s.do(ctx, http.MethodGet, u, nil, "")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, remoteErr("list "+prefix, resp)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return parseListResponse(body)
}

// do issues an authenticated request, retrying once with a fresh token on 401.
func (s *ObjectStore) do(ctx context.Context, method, u string, body []byte, contentType string) (*http.Response, error) {
	resp, err := s.doOnce(ctx, method, u, body, contentType)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		s.tokens.Invalidate(ServiceCOS)
		return s.doOnce(ctx, method, u, body, contentType)
	}
	return resp, nil
}

func (s *ObjectStore) doOnce(ctx context.Context, method, u string, body []byte, contentType string) (*http.Response, error) {
	token, err := s.tokens.Token(ctx, ServiceCOS)
	if err != nil {
		return nil, err
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("ibm-service-instance-id", s.serviceInstanceID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return s.httpClient.Do(req)
}

type listBucketResult struct {
	XMLName  xml.Name `xml:"ListBucketResult"`
	Contents []struct {
		Key          string `xml:"Key"`
		Size         int64  `xml:"Size"`
		LastModified string `xml:"LastModified"`
		ETag         string `xml:"ETag"`
	} `xml:"Contents"`
}

func parseListResponse(body []byte) ([]ObjectInfo, error) {
	var parsed listBucketResult
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse list response: %w", err)
	}
	items := make([]ObjectInfo, 0, len(parsed.Contents))
	for _, c := range parsed.Contents {
		modified, _ := time.Parse(time.RFC3339, c.LastModified)
		items = append(items, ObjectInfo{
			Name:       c.Key,
			Size:       c.Size,
			ModifiedAt: modified,
			ETag:       c.ETag,
		})
	}
	return items, nil
}

func remoteErr(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &RemoteError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
