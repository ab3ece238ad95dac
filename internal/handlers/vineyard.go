package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/skip2/go-qrcode"
	"github.com/winetrace/winetracego/internal/contract"
	"github.com/winetrace/winetracego/internal/models"
	"github.com/winetrace/winetracego/internal/utils"
)

// listVineyards returns all indexed vineyards, newest first
func (r *Router) listVineyards(w http.ResponseWriter, req *http.Request) {
	var vineyards []models.Vineyard
	if err := r.db.Order("id DESC").Find(&vineyards).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch vineyards")
		return
	}
	respondJSON(w, http.StatusOK, vineyards)
}

// getVineyard returns one indexed vineyard
func (r *Router) getVineyard(w http.ResponseWriter, req *http.Request) {
	id, _ := strconv.ParseUint(mux.Vars(req)["id"], 10, 64)

	var vineyard models.Vineyard
	if err := r.db.First(&vineyard, id).Error; err != nil {
		respondError(w, http.StatusNotFound, "Vineyard not found")
		return
	}
	respondJSON(w, http.StatusOK, vineyard)
}

// vineyardQR renders a QR code pointing at the public trace view
func (r *Router) vineyardQR(w http.ResponseWriter, req *http.Request) {
	id, _ := strconv.ParseUint(mux.Vars(req)["id"], 10, 64)

	var vineyard models.Vineyard
	if err := r.db.First(&vineyard, id).Error; err != nil {
		respondError(w, http.StatusNotFound, "Vineyard not found")
		return
	}

	png, err := qrcode.Encode(r.traceURL(req, vineyard.ID), qrcode.Medium, 256)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to render QR code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

type createVineyardRequest struct {
	Name         string `json:"name"`
	Owner        string `json:"owner"`
	GrapeVariety string `json:"grape_variety"`
	Latitude     string `json:"latitude"`
	Longitude    string `json:"longitude"`
}

// createVineyard submits a registration transaction through the session
func (r *Router) createVineyard(w http.ResponseWriter, req *http.Request) {
	var body createVineyardRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if body.Name == "" || body.Owner == "" || body.GrapeVariety == "" {
		respondError(w, http.StatusBadRequest, "name, owner and grape_variety are required")
		return
	}
	if err := utils.ValidateLatitude(body.Latitude); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("latitude: %v", err))
		return
	}
	if err := utils.ValidateLongitude(body.Longitude); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("longitude: %v", err))
		return
	}

	binding, err := r.session.Contract()
	if err != nil {
		respondMapped(w, err)
		return
	}
	opts, err := r.session.TransactOpts(req.Context())
	if err != nil {
		respondMapped(w, err)
		return
	}

	result, err := binding.RegisterVineyard(req.Context(), opts, contract.RegisterVineyardInput{
		Name:         body.Name,
		Owner:        body.Owner,
		GrapeVariety: body.GrapeVariety,
		Latitude:     body.Latitude,
		Longitude:    body.Longitude,
	})
	if err != nil {
		respondMapped(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

func (r *Router) traceURL(req *http.Request, vineyardID uint64) string {
	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/api/trace/%d", scheme, req.Host, vineyardID)
}
