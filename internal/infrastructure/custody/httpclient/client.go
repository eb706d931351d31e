package httpcustody

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/openmart/martd/internal/core/domain"
	"github.com/openmart/martd/internal/core/ports"
)

type transferRequest struct {
	Collection string `json:"collection"`
	TokenId    string `json:"tokenId"`
	From       string `json:"from"`
	To         string `json:"to"`
}

type holderResponse struct {
	Holder string `json:"holder"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// service talks to an external asset registry over HTTP. Transient
// failures are retried by the underlying client; a non-2xx response is
// surfaced as an error.
type service struct {
	baseUrl string
	client  *retryablehttp.Client
}

func NewCustodyService(baseUrl string, requestTimeout time.Duration) (ports.CustodyService, error) {
	if len(baseUrl) == 0 {
		return nil, fmt.Errorf("missing custody registry url")
	}
	if _, err := url.Parse(baseUrl); err != nil {
		return nil, fmt.Errorf("invalid custody registry url: %w", err)
	}

	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryMax = 3
	client.HTTPClient.Timeout = requestTimeout

	return &service{baseUrl: baseUrl, client: client}, nil
}

func (s *service) TransferCustody(
	ctx context.Context, asset domain.Asset, from, to string,
) error {
	payload, err := json.Marshal(transferRequest{
		Collection: asset.Collection,
		TokenId:    asset.TokenId,
		From:       from,
		To:         to,
	})
	if err != nil {
		return err
	}

	req, err := retryablehttp.NewRequestWithContext(
		ctx, http.MethodPost, fmt.Sprintf("%s/v1/transfers", s.baseUrl),
		bytes.NewReader(payload),
	)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach custody registry: %w", err)
	}
	// nolint
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("custody registry refused transfer: %s", readError(resp))
	}
	return nil
}

func (s *service) CurrentHolder(
	ctx context.Context, asset domain.Asset,
) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(
		ctx, http.MethodGet,
		fmt.Sprintf(
			"%s/v1/assets/%s/%s/holder",
			s.baseUrl, url.PathEscape(asset.Collection), url.PathEscape(asset.TokenId),
		),
		nil,
	)
	if err != nil {
		return "", err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach custody registry: %w", err)
	}
	// nolint
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to get holder of %s: %s", asset, readError(resp))
	}

	var holder holderResponse
	if err := json.NewDecoder(resp.Body).Decode(&holder); err != nil {
		return "", fmt.Errorf("failed to decode holder response: %w", err)
	}
	return holder.Holder, nil
}

func readError(resp *http.Response) string {
	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.Status
	}
	var errResp errorResponse
	if err := json.Unmarshal(buf, &errResp); err == nil && len(errResp.Message) > 0 {
		return errResp.Message
	}
	return fmt.Sprintf("%s: %s", resp.Status, string(buf))
}
