package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"permit-agent/internal/cache"
)

const smartyAutocompleteURL = "https://us-autocomplete-pro.api.smarty.com/lookup"

// AddressService proxies address-autocomplete lookups to Smarty so the
// credentials never reach the browser. Results are cached briefly when a
// cache is wired in; lookups are cheap but bursty while the user types.
type AddressService struct {
	authID     string
	authToken  string
	lookupURL  string
	httpClient *http.Client
	cache      *cache.SuggestionCache
}

func NewAddressService(authID, authToken string, suggestionCache *cache.SuggestionCache) *AddressService {
	return &AddressService{
		authID:     authID,
		authToken:  authToken,
		lookupURL:  smartyAutocompleteURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      suggestionCache,
	}
}

// Configured reports whether Smarty credentials were provided. The endpoint
// answers with an empty suggestion list when they were not.
func (s *AddressService) Configured() bool {
	return s.authID != "" && s.authToken != ""
}

// Suggest returns the raw suggestion payload for the given search text.
// selected narrows a prior suggestion with multiple entries.
func (s *AddressService) Suggest(ctx context.Context, search, selected string) (json.RawMessage, error) {
	search = strings.TrimSpace(search)
	if search == "" || !s.Configured() {
		return json.RawMessage(`{"suggestions":[]}`), nil
	}

	if s.cache != nil {
		if cached, ok, err := s.cache.Get(ctx, search, selected); err == nil && ok {
			return cached, nil
		}
	}

	params := url.Values{}
	params.Set("auth-id", s.authID)
	params.Set("auth-token", s.authToken)
	params.Set("search", search)
	params.Set("country", "us")
	params.Set("source", "postal")
	params.Set("prefer_geolocation", "city")
	if selected != "" {
		params.Set("selected", selected)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.lookupURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build autocomplete request failed: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("autocomplete lookup failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read autocomplete response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("autocomplete lookup responded %d", resp.StatusCode)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("autocomplete lookup returned invalid JSON")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, search, selected, body); err != nil {
			log.Printf("cache autocomplete suggestions failed: %v", err)
		}
	}
	return body, nil
}
