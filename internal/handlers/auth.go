package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/winetrace/winetracego/internal/models"
	"github.com/winetrace/winetracego/internal/utils"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// register creates an API user account
func (r *Router) register(w http.ResponseWriter, req *http.Request) {
	var creds credentials
	if err := json.NewDecoder(req.Body).Decode(&creds); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if creds.Email == "" || len(creds.Password) < 8 {
		respondError(w, http.StatusBadRequest, "Email and a password of at least 8 characters are required")
		return
	}

	hash, err := utils.HashPassword(creds.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	user := models.UserAuth{
		ID:       uuid.NewString(),
		Email:    creds.Email,
		Password: hash,
	}
	if err := r.db.Create(&user).Error; err != nil {
		respondError(w, http.StatusConflict, "Account already exists")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": user.ID, "email": user.Email})
}

// login issues a token for an existing account
func (r *Router) login(w http.ResponseWriter, req *http.Request) {
	var creds credentials
	if err := json.NewDecoder(req.Body).Decode(&creds); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	var user models.UserAuth
	if err := r.db.Where("email = ?", creds.Email).First(&user).Error; err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !utils.CheckPasswordHash(creds.Password, user.Password) {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := utils.GenerateToken(&user, r.cfg.JWTSecret)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}
