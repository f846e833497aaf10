package activitypub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/deemkeen/fedipage/domain"
	"github.com/deemkeen/fedipage/storage"
	"github.com/deemkeen/fedipage/util"
)

// fetchActorDocument fetches a remote actor document
func (s *Service) fetchActorDocument(ctx context.Context, actorURI string) (*Person, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", actorURI, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/activity+json")
	req.Header.Set("User-Agent", userAgent())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("actor fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("actor fetch failed with status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var person Person
	if err := json.Unmarshal(body, &person); err != nil {
		return nil, fmt.Errorf("failed to parse actor JSON: %w", err)
	}

	if person.ID == "" || person.Inbox == "" {
		return nil, fmt.Errorf("actor missing required fields")
	}
	return &person, nil
}

// LookupActor resolves a fediverse handle ("@user@host" or "user@host") to a
// cached actor via webfinger
func (s *Service) LookupActor(ctx context.Context, handle string) (*domain.Actor, error) {
	acct := strings.TrimPrefix(handle, "@")
	parts := strings.SplitN(acct, "@", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid handle: %s", handle)
	}
	host := parts[1]

	wfURL := fmt.Sprintf("https://%s/.well-known/webfinger?resource=acct:%s", host, url.QueryEscape(acct))
	req, err := http.NewRequestWithContext(ctx, "GET", wfURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/jrd+json")
	req.Header.Set("User-Agent", userAgent())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webfinger lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("webfinger lookup failed with status: %d", resp.StatusCode)
	}

	var jrd struct {
		Links []struct {
			Rel  string `json:"rel"`
			Type string `json:"type"`
			Href string `json:"href"`
		} `json:"links"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jrd); err != nil {
		return nil, fmt.Errorf("failed to parse webfinger response: %w", err)
	}

	for _, link := range jrd.Links {
		if link.Rel == "self" && strings.Contains(link.Type, "activity+json") && link.Href != "" {
			return s.GetOrFetchActor(ctx, link.Href)
		}
	}
	return nil, fmt.Errorf("no actor link in webfinger response for %s", handle)
}

// downloadLimited fetches a remote resource, failing when the body exceeds
// maxBytes. Returns the body and its content type.
func (s *Service) downloadLimited(ctx context.Context, resourceURL string, maxBytes int64) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", resourceURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, "", storage.ErrTooLarge
	}

	return data, resp.Header.Get("Content-Type"), nil
}

func userAgent() string {
	return util.GetNameAndVersion() + " ActivityPub"
}
