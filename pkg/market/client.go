// Package market is a thin client for the tarkov.dev GraphQL API, used for
// price resolution and catalog refresh.
package market

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultEndpoint is the public tarkov.dev GraphQL endpoint.
const DefaultEndpoint = "https://api.tarkov.dev/graphql"

// The preferred sale source when resolving an item's value.
const fleaMarketSource = "fleaMarket"

// ErrUnavailable wraps every transport-level failure (unreachable, timeout,
// bad status, undecodable body) so callers can degrade gracefully with a
// single errors.Is check.
var ErrUnavailable = errors.New("pricing service unavailable")

// Client talks to the tarkov.dev GraphQL API. The zero value is not usable;
// construct with NewClient.
type Client struct {
	Endpoint string
	HTTP     *http.Client
}

// NewClient builds a client with a short connect timeout and a longer overall
// deadline, so a hung market call can never hang a whole request.
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		Endpoint: endpoint,
		HTTP: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
			},
		},
	}
}

type sellOffer struct {
	Price  int64  `json:"price"`
	Source string `json:"source"`
}

type pricesResponse struct {
	Data struct {
		Items []struct {
			ID      string      `json:"id"`
			SellFor []sellOffer `json:"sellFor"`
		} `json:"items"`
	} `json:"data"`
}

type catalogResponse struct {
	Data struct {
		Items []struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			Category struct {
				Name string `json:"name"`
			} `json:"category"`
		} `json:"items"`
	} `json:"data"`
}

// CatalogItem is one item as returned by the catalog listing query.
type CatalogItem struct {
	ID       string
	Name     string
	Category string
}

func priceQuery(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = strconv.Quote(id)
	}
	return fmt.Sprintf(`{ items(ids: [%s]) { id sellFor { price source } } }`, strings.Join(quoted, ", "))
}

const catalogQuery = `{ items { id name category { name } } }`

func (c *Client) runQuery(ctx context.Context, query string, out any) error {
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: query returned status %d", ErrUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}

// ItemPrices resolves prices for all given item IDs in a single query, so the
// external call volume is bounded by unique items rather than total lines. An
// item with no sale sources at all maps to nil.
func (c *Client) ItemPrices(ctx context.Context, ids []string) (map[string]*int64, error) {
	out := make(map[string]*int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var resp pricesResponse
	if err := c.runQuery(ctx, priceQuery(ids), &resp); err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = nil
	}
	for _, item := range resp.Data.Items {
		out[item.ID] = resolvePrice(item.SellFor)
	}
	return out, nil
}

// ItemPrice resolves a single item's price. Nil means the item cannot be sold
// anywhere (e.g. GP coin).
func (c *Client) ItemPrice(ctx context.Context, id string) (*int64, error) {
	prices, err := c.ItemPrices(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	return prices[id], nil
}

// resolvePrice prefers the flea market offer; with no flea listing the best
// price among the remaining sale sources wins.
func resolvePrice(offers []sellOffer) *int64 {
	if len(offers) == 0 {
		return nil
	}
	for _, o := range offers {
		if o.Source == fleaMarketSource {
			p := o.Price
			return &p
		}
	}
	best := offers[0].Price
	for _, o := range offers[1:] {
		if o.Price > best {
			best = o.Price
		}
	}
	return &best
}

// ListItems fetches the full item catalog, used by the refresh job.
func (c *Client) ListItems(ctx context.Context) ([]CatalogItem, error) {
	var resp catalogResponse
	if err := c.runQuery(ctx, catalogQuery, &resp); err != nil {
		return nil, err
	}
	out := make([]CatalogItem, 0, len(resp.Data.Items))
	for _, it := range resp.Data.Items {
		out = append(out, CatalogItem{ID: it.ID, Name: it.Name, Category: it.Category.Name})
	}
	return out, nil
}
