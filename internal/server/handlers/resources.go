package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/adsmirror/adsmirror/internal/core"
	"github.com/adsmirror/adsmirror/internal/core/mirror"
)

// Mirror is the subset of *mirror.Service the API routes call.
type Mirror interface {
	CreateCampaign(ctx context.Context, userID int64, in mirror.CampaignInput) (*core.Campaign, error)
	GetCampaign(ctx context.Context, userID, id int64) (*core.Campaign, error)
	ListCampaigns(ctx context.Context, userID int64) ([]core.Campaign, error)
	UpdateCampaign(ctx context.Context, userID, id int64, patch mirror.CampaignPatch) (*core.Campaign, error)
	DeleteCampaign(ctx context.Context, userID, id int64) error

	CreateAdGroup(ctx context.Context, userID int64, in mirror.AdGroupInput) (*core.AdGroup, error)
	GetAdGroup(ctx context.Context, userID, id int64) (*core.AdGroup, error)
	ListAdGroups(ctx context.Context, userID int64) ([]core.AdGroup, error)
	UpdateAdGroup(ctx context.Context, userID, id int64, patch mirror.AdGroupPatch) (*core.AdGroup, error)
	DeleteAdGroup(ctx context.Context, userID, id int64) error

	CreateAd(ctx context.Context, userID int64, in mirror.AdInput) (*core.Ad, error)
	GetAd(ctx context.Context, userID, id int64) (*core.Ad, error)
	ListAds(ctx context.Context, userID int64) ([]core.Ad, error)
	UpdateAd(ctx context.Context, userID, id int64, patch mirror.AdPatch) (*core.Ad, error)
	DeleteAd(ctx context.Context, userID, id int64) error

	CreateCreative(ctx context.Context, userID int64, in mirror.CreativeInput) (*core.AdCreative, error)
	GetCreative(ctx context.Context, userID, id int64) (*core.AdCreative, error)
	ListCreatives(ctx context.Context, userID int64) ([]core.AdCreative, error)
	UpdateCreative(ctx context.Context, userID, id int64, patch mirror.CreativePatch) (*core.AdCreative, error)
	DeleteCreative(ctx context.Context, userID, id int64) error
}

// Resource serves the CRUD routes of one mirrored entity. T is the stored
// row, In the create body and P the update body.
type Resource[T, In, P any] struct {
	Noun   string
	Create func(ctx context.Context, userID int64, in In) (*T, error)
	Get    func(ctx context.Context, userID, id int64) (*T, error)
	List   func(ctx context.Context, userID int64) ([]T, error)
	Update func(ctx context.Context, userID, id int64, patch P) (*T, error)
	Delete func(ctx context.Context, userID, id int64) error
}

// Mount registers the collection and item routes on r.
func (res Resource[T, In, P]) Mount(r chi.Router) {
	r.Get("/", res.HandleList)
	r.Post("/", res.HandleCreate)
	r.Get("/{id}", res.HandleGet)
	r.Put("/{id}", res.HandleUpdate)
	r.Delete("/{id}", res.HandleDelete)
}

func (res Resource[T, In, P]) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	var in In
	if err := decodeJSON(r, &in); err != nil {
		respondWithError(w, r, err)
		return
	}

	row, err := res.Create(r.Context(), userID, in)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (res Resource[T, In, P]) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, id, err := userAndID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	row, err := res.Get(r.Context(), userID, id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (res Resource[T, In, P]) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	rows, err := res.List(r.Context(), userID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	if rows == nil {
		rows = []T{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (res Resource[T, In, P]) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, id, err := userAndID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	var patch P
	if err := decodeJSON(r, &patch); err != nil {
		respondWithError(w, r, err)
		return
	}

	row, err := res.Update(r.Context(), userID, id, patch)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (res Resource[T, In, P]) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, id, err := userAndID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	if err := res.Delete(r.Context(), userID, id); err != nil {
		respondWithError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: res.Noun + " deleted successfully"})
}

func userAndID(r *http.Request) (int64, int64, error) {
	userID, err := currentUser(r)
	if err != nil {
		return 0, 0, err
	}
	id, err := pathID(r)
	if err != nil {
		return 0, 0, err
	}
	return userID, id, nil
}

// Campaigns returns the campaign routes backed by m.
func Campaigns(m Mirror) Resource[core.Campaign, mirror.CampaignInput, mirror.CampaignPatch] {
	return Resource[core.Campaign, mirror.CampaignInput, mirror.CampaignPatch]{
		Noun:   "Campaign",
		Create: m.CreateCampaign,
		Get:    m.GetCampaign,
		List:   m.ListCampaigns,
		Update: m.UpdateCampaign,
		Delete: m.DeleteCampaign,
	}
}

// AdGroups returns the ad group (ad set) routes backed by m.
func AdGroups(m Mirror) Resource[core.AdGroup, mirror.AdGroupInput, mirror.AdGroupPatch] {
	return Resource[core.AdGroup, mirror.AdGroupInput, mirror.AdGroupPatch]{
		Noun:   "Ad group",
		Create: m.CreateAdGroup,
		Get:    m.GetAdGroup,
		List:   m.ListAdGroups,
		Update: m.UpdateAdGroup,
		Delete: m.DeleteAdGroup,
	}
}

// Ads returns the ad routes backed by m.
func Ads(m Mirror) Resource[core.Ad, mirror.AdInput, mirror.AdPatch] {
	return Resource[core.Ad, mirror.AdInput, mirror.AdPatch]{
		Noun:   "Ad",
		Create: m.CreateAd,
		Get:    m.GetAd,
		List:   m.ListAds,
		Update: m.UpdateAd,
		Delete: m.DeleteAd,
	}
}

// Creatives returns the ad creative routes backed by m.
func Creatives(m Mirror) Resource[core.AdCreative, mirror.CreativeInput, mirror.CreativePatch] {
	return Resource[core.AdCreative, mirror.CreativeInput, mirror.CreativePatch]{
		Noun:   "Ad creative",
		Create: m.CreateCreative,
		Get:    m.GetCreative,
		List:   m.ListCreatives,
		Update: m.UpdateCreative,
		Delete: m.DeleteCreative,
	}
}
