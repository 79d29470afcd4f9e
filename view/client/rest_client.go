// Package client is a REST client of the view backend.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alphabill-org/txplanner/account"
	"github.com/alphabill-org/txplanner/note"
	"github.com/alphabill-org/txplanner/view"
	"github.com/alphabill-org/txplanner/view/backend"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/fxamacker/cbor/v2"
)

const (
	AppParamsPath      = "api/v1/app-params"
	FMDParamsPath      = "api/v1/fmd-params"
	AddressPath        = "api/v1/address"
	NotesPath          = "api/v1/notes"
	NotesForVotingPath = "api/v1/notes-for-voting"
	InfoPath           = "api/v1/info"

	defaultScheme = "http://"
)

type ViewClient struct {
	BaseUrl    *url.URL
	HttpClient http.Client

	appParamsURL      *url.URL
	fmdParamsURL      *url.URL
	addressURL        *url.URL
	notesURL          *url.URL
	notesForVotingURL *url.URL
	infoURL           *url.URL
}

func New(baseUrl string) (*ViewClient, error) {
	if !strings.HasPrefix(baseUrl, "http://") && !strings.HasPrefix(baseUrl, "https://") {
		baseUrl = defaultScheme + baseUrl
	}
	u, err := url.Parse(baseUrl)
	if err != nil {
		return nil, fmt.Errorf("error parsing view client base URL (%s): %w", baseUrl, err)
	}
	return &ViewClient{
		BaseUrl:           u,
		HttpClient:        http.Client{Timeout: time.Minute},
		appParamsURL:      u.JoinPath(AppParamsPath),
		fmdParamsURL:      u.JoinPath(FMDParamsPath),
		addressURL:        u.JoinPath(AddressPath),
		notesURL:          u.JoinPath(NotesPath),
		notesForVotingURL: u.JoinPath(NotesForVotingPath),
		infoURL:           u.JoinPath(InfoPath),
	}, nil
}

func (c *ViewClient) AppParameters(ctx context.Context) (*view.AppParameters, error) {
	var res view.AppParameters
	if err := c.get(ctx, c.appParamsURL, backend.ApplicationJson, &res); err != nil {
		return nil, fmt.Errorf("get app parameters request failed: %w", err)
	}
	return &res, nil
}

func (c *ViewClient) FMDParameters(ctx context.Context) (*view.FMDParameters, error) {
	var res view.FMDParameters
	if err := c.get(ctx, c.fmdParamsURL, backend.ApplicationJson, &res); err != nil {
		return nil, fmt.Errorf("get fmd parameters request failed: %w", err)
	}
	return &res, nil
}

func (c *ViewClient) AddressByIndex(ctx context.Context, idx account.AddressIndex) (account.Address, error) {
	u := c.addressURL.JoinPath(strconv.FormatUint(uint64(idx.Account), 10))
	if idx.IsEphemeral() {
		setQueryParam(u, "randomizer", hexutil.Encode(idx.Randomizer[:]))
	}
	var res backend.AddressResponse
	if err := c.get(ctx, u, backend.ApplicationJson, &res); err != nil {
		return account.Address{}, fmt.Errorf("get address request failed: %w", err)
	}
	return res.Address, nil
}

func (c *ViewClient) Notes(ctx context.Context, req view.NotesRequest) ([]*note.SpendableNoteRecord, error) {
	u := *c.notesURL
	if req.AssetID != nil {
		setQueryParam(&u, "assetId", req.AssetID.String())
	}
	if req.AddressIndex != nil {
		setQueryParam(&u, "account", strconv.FormatUint(uint64(req.AddressIndex.Account), 10))
	}
	if req.IncludeSpent {
		setQueryParam(&u, "includeSpent", "true")
	}
	var res backend.NotesResponse
	if err := c.get(ctx, &u, backend.ApplicationCbor, &res); err != nil {
		return nil, fmt.Errorf("get notes request failed: %w", err)
	}
	return res.Notes, nil
}

func (c *ViewClient) NotesForVoting(ctx context.Context, req view.NotesForVotingRequest) ([]*view.VotableNoteRecord, error) {
	u := *c.notesForVotingURL
	setQueryParam(&u, "height", strconv.FormatUint(req.VotableAtHeight, 10))
	if req.AddressIndex != nil {
		setQueryParam(&u, "account", strconv.FormatUint(uint64(req.AddressIndex.Account), 10))
	}
	var res backend.VotableNotesResponse
	if err := c.get(ctx, &u, backend.ApplicationCbor, &res); err != nil {
		return nil, fmt.Errorf("get notes for voting request failed: %w", err)
	}
	return res.Notes, nil
}

func (c *ViewClient) GetInfo(ctx context.Context) (*backend.InfoResponse, error) {
	var res backend.InfoResponse
	if err := c.get(ctx, c.infoURL, backend.ApplicationJson, &res); err != nil {
		return nil, fmt.Errorf("get info request failed: %w", err)
	}
	return &res, nil
}

// get decodes the response body into data, using the encoding of accept.
func (c *ViewClient) get(ctx context.Context, u *url.URL, accept string, data any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set(backend.Accept, accept)
	rsp, err := c.HttpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer rsp.Body.Close()

	if rsp.StatusCode != http.StatusOK {
		return decodeError(rsp)
	}
	if accept == backend.ApplicationCbor {
		err = cbor.NewDecoder(rsp.Body).Decode(data)
	} else {
		err = json.NewDecoder(rsp.Body).Decode(data)
	}
	if err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

func decodeError(rsp *http.Response) error {
	var er backend.ErrorResponse
	body, err := io.ReadAll(rsp.Body)
	if err != nil {
		return fmt.Errorf("failed to read error response: %w", err)
	}
	if err := json.Unmarshal(body, &er); err != nil || er.Message == "" {
		er.Message = string(body)
	}
	if rsp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", er.Message, view.ErrNotFound)
	}
	return fmt.Errorf("backend responded %s: %s", rsp.Status, er.Message)
}

func setQueryParam(u *url.URL, key, val string) {
	q := u.Query()
	q.Set(key, val)
	u.RawQuery = q.Encode()
}
