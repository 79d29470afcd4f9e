package backend

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/alphabill-org/txplanner/account"
	"github.com/alphabill-org/txplanner/asset"
	"github.com/alphabill-org/txplanner/note"
	"github.com/alphabill-org/txplanner/view"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

const (
	ServiceName = "txplanner view"

	paramAccount      = "account"
	paramAssetID      = "assetId"
	paramIncludeSpent = "includeSpent"
	paramHeight       = "height"
	paramRandomizer   = "randomizer"
)

type (
	viewRestAPI struct {
		Service view.Client
		rw      *ResponseWriter
	}

	NotesResponse struct {
		Notes []*note.SpendableNoteRecord `json:"notes"`
	}

	VotableNotesResponse struct {
		Notes []*view.VotableNoteRecord `json:"notes"`
	}

	AddressResponse struct {
		Address account.Address `json:"address"`
	}

	InfoResponse struct {
		Name    string `json:"name"`
		ChainID string `json:"chainId,omitempty"`
	}
)

func (api *viewRestAPI) Router() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)

	apiRouter := router.PathPrefix("/api").Subrouter()
	// content-type needs to be explicitly allowed, otherwise the cors filter
	// is not applied
	apiRouter.Use(handlers.CORS(
		handlers.AllowedHeaders([]string{ContentType, Accept}),
	))

	apiV1 := apiRouter.PathPrefix("/v1").Subrouter()
	apiV1.HandleFunc("/app-params", api.appParamsFunc).Methods("GET", "OPTIONS")
	apiV1.HandleFunc("/fmd-params", api.fmdParamsFunc).Methods("GET", "OPTIONS")
	apiV1.HandleFunc("/address/{account}", api.addressFunc).Methods("GET", "OPTIONS")
	apiV1.HandleFunc("/notes", api.notesFunc).Methods("GET", "OPTIONS")
	apiV1.HandleFunc("/notes-for-voting", api.notesForVotingFunc).Methods("GET", "OPTIONS")
	apiV1.HandleFunc("/info", api.infoFunc).Methods("GET", "OPTIONS")
	return router
}

func (api *viewRestAPI) appParamsFunc(w http.ResponseWriter, r *http.Request) {
	params, err := api.Service.AppParameters(r.Context())
	if err != nil {
		api.rw.WriteErrorResponse(w, err)
		return
	}
	api.rw.WriteResponse(w, r, params)
}

func (api *viewRestAPI) fmdParamsFunc(w http.ResponseWriter, r *http.Request) {
	params, err := api.Service.FMDParameters(r.Context())
	if err != nil {
		api.rw.WriteErrorResponse(w, err)
		return
	}
	api.rw.WriteResponse(w, r, params)
}

func (api *viewRestAPI) addressFunc(w http.ResponseWriter, r *http.Request) {
	acc, err := parseAccount(mux.Vars(r)[paramAccount])
	if err != nil {
		api.rw.InvalidParamResponse(w, paramAccount, err)
		return
	}
	idx := account.NewAddressIndex(acc)
	if s := r.URL.Query().Get(paramRandomizer); s != "" {
		b, err := hexutil.Decode(s)
		if err != nil {
			api.rw.InvalidParamResponse(w, paramRandomizer, err)
			return
		}
		if len(b) != account.RandomizerLength {
			api.rw.InvalidParamResponse(w, paramRandomizer, fmt.Errorf("must be %d bytes, got %d", account.RandomizerLength, len(b)))
			return
		}
		copy(idx.Randomizer[:], b)
	}
	addr, err := api.Service.AddressByIndex(r.Context(), idx)
	if err != nil {
		api.rw.WriteErrorResponse(w, err)
		return
	}
	api.rw.WriteResponse(w, r, &AddressResponse{Address: addr})
}

func (api *viewRestAPI) notesFunc(w http.ResponseWriter, r *http.Request) {
	qp := r.URL.Query()
	var req view.NotesRequest
	if s := qp.Get(paramAssetID); s != "" {
		id, err := asset.ParseID(s)
		if err != nil {
			api.rw.InvalidParamResponse(w, paramAssetID, err)
			return
		}
		req.AssetID = &id
	}
	idx, err := parseAccountQueryParam(r)
	if err != nil {
		api.rw.InvalidParamResponse(w, paramAccount, err)
		return
	}
	req.AddressIndex = idx
	if qp.Has(paramIncludeSpent) {
		if req.IncludeSpent, err = strconv.ParseBool(qp.Get(paramIncludeSpent)); err != nil {
			api.rw.InvalidParamResponse(w, paramIncludeSpent, err)
			return
		}
	}

	notes, err := api.Service.Notes(r.Context(), req)
	if err != nil {
		api.rw.WriteErrorResponse(w, err)
		return
	}
	api.rw.WriteResponse(w, r, &NotesResponse{Notes: notes})
}

func (api *viewRestAPI) notesForVotingFunc(w http.ResponseWriter, r *http.Request) {
	height, err := strconv.ParseUint(r.URL.Query().Get(paramHeight), 10, 64)
	if err != nil {
		api.rw.InvalidParamResponse(w, paramHeight, err)
		return
	}
	idx, err := parseAccountQueryParam(r)
	if err != nil {
		api.rw.InvalidParamResponse(w, paramAccount, err)
		return
	}

	notes, err := api.Service.NotesForVoting(r.Context(), view.NotesForVotingRequest{VotableAtHeight: height, AddressIndex: idx})
	if err != nil {
		api.rw.WriteErrorResponse(w, err)
		return
	}
	api.rw.WriteResponse(w, r, &VotableNotesResponse{Notes: notes})
}

func (api *viewRestAPI) infoFunc(w http.ResponseWriter, r *http.Request) {
	res := InfoResponse{Name: ServiceName}
	params, err := api.Service.AppParameters(r.Context())
	switch {
	case err == nil:
		res.ChainID = params.ChainID
	case !errors.Is(err, view.ErrNotFound):
		api.rw.WriteErrorResponse(w, err)
		return
	}
	api.rw.WriteResponse(w, r, res)
}

func parseAccountQueryParam(r *http.Request) (*account.AddressIndex, error) {
	if !r.URL.Query().Has(paramAccount) {
		return nil, nil
	}
	acc, err := parseAccount(r.URL.Query().Get(paramAccount))
	if err != nil {
		return nil, err
	}
	idx := account.NewAddressIndex(acc)
	return &idx, nil
}

func parseAccount(s string) (uint32, error) {
	acc, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(acc), nil
}
