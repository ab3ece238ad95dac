package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/winetrace/winetracego/internal/models"
	"github.com/winetrace/winetracego/internal/services/report"
)

// getTrace returns a vineyard and its full process history from the
// read model
func (r *Router) getTrace(w http.ResponseWriter, req *http.Request) {
	vineyardID, _ := strconv.ParseUint(mux.Vars(req)["vineyardId"], 10, 64)

	var vineyard models.Vineyard
	if err := r.db.First(&vineyard, vineyardID).Error; err != nil {
		respondError(w, http.StatusNotFound, "Vineyard not found")
		return
	}

	var processes []models.Process
	if err := r.db.Where("vineyard_id = ?", vineyardID).Order("id ASC").Find(&processes).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch processes")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"vineyard":  vineyard,
		"processes": processes,
	})
}

// traceReport renders the vineyard's trace history as a PDF
func (r *Router) traceReport(w http.ResponseWriter, req *http.Request) {
	vineyardID, _ := strconv.ParseUint(mux.Vars(req)["vineyardId"], 10, 64)

	var vineyard models.Vineyard
	if err := r.db.First(&vineyard, vineyardID).Error; err != nil {
		respondError(w, http.StatusNotFound, "Vineyard not found")
		return
	}

	var processes []models.Process
	if err := r.db.Where("vineyard_id = ?", vineyardID).Order("id ASC").Find(&processes).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch processes")
		return
	}

	pdf, err := report.Generate(report.TraceReport{
		Vineyard:   vineyard,
		Processes:  processes,
		TraceURL:   r.traceURL(req, vineyard.ID),
		GatewayURL: r.ipfs.GatewayURL,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to render report")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"trace-vineyard-%d.pdf\"", vineyard.ID))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
