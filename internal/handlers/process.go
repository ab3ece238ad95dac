package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/winetrace/winetracego/internal/contract"
	"github.com/winetrace/winetracego/internal/models"
)

// Files are pinned to IPFS, only the CID goes on chain; a hard cap keeps
// accidental large uploads out of the local daemon.
const maxUploadBytes = 16 << 20

// listProcesses returns all indexed processes, newest first
func (r *Router) listProcesses(w http.ResponseWriter, req *http.Request) {
	var processes []models.Process
	if err := r.db.Order("id DESC").Find(&processes).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch processes")
		return
	}
	respondJSON(w, http.StatusOK, processes)
}

// getProcess returns one indexed process with its gateway link
func (r *Router) getProcess(w http.ResponseWriter, req *http.Request) {
	id, _ := strconv.ParseUint(mux.Vars(req)["id"], 10, 64)

	var process models.Process
	if err := r.db.First(&process, id).Error; err != nil {
		respondError(w, http.StatusNotFound, "Process not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"process":     process,
		"gateway_url": r.ipfs.GatewayURL(process.IPFSCid),
	})
}

// processesByVineyard returns the indexed processes of one vineyard
func (r *Router) processesByVineyard(w http.ResponseWriter, req *http.Request) {
	vineyardID, _ := strconv.ParseUint(mux.Vars(req)["vineyardId"], 10, 64)

	var processes []models.Process
	if err := r.db.Where("vineyard_id = ?", vineyardID).Order("id ASC").Find(&processes).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch processes")
		return
	}
	respondJSON(w, http.StatusOK, processes)
}

// uploadProcess pins a document to IPFS and records it on chain:
// probe the daemon, upload the file, then submit addProcess (which verifies
// the referenced vineyard before any transaction is sent).
func (r *Router) uploadProcess(w http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(w, req.Body, maxUploadBytes)
	if err := req.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart payload or file too large")
		return
	}

	vineyardID, err := strconv.ParseUint(req.FormValue("vineyard_id"), 10, 64)
	if err != nil || vineyardID == 0 {
		respondError(w, http.StatusBadRequest, "vineyard_id is required")
		return
	}
	title := req.FormValue("title")
	if title == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}
	description := req.FormValue("description")

	file, header, err := req.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	binding, err := r.session.Contract()
	if err != nil {
		respondMapped(w, err)
		return
	}

	// Gate on a reachable daemon before reading the upload
	if _, err := r.ipfs.Version(req.Context()); err != nil {
		respondMapped(w, err)
		return
	}

	cid, err := r.ipfs.Add(req.Context(), header.Filename, file)
	if err != nil {
		respondMapped(w, err)
		return
	}

	opts, err := r.session.TransactOpts(req.Context())
	if err != nil {
		respondMapped(w, err)
		return
	}

	fileType := header.Header.Get("Content-Type")
	result, err := binding.AddProcess(req.Context(), opts, contract.AddProcessInput{
		VineyardID:  vineyardID,
		Title:       title,
		Description: description,
		FileName:    header.Filename,
		FileType:    fileType,
		IPFSCid:     cid,
	})
	if err != nil {
		respondMapped(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"result":      result,
		"ipfs_cid":    cid,
		"gateway_url": r.ipfs.GatewayURL(cid),
	})
}
