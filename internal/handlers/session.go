package handlers

import (
	"net/http"
)

// connectSession establishes the wallet session: account authorization,
// expected-chain binding, contract handle. Idempotent while connected.
func (r *Router) connectSession(w http.ResponseWriter, req *http.Request) {
	if err := r.session.Connect(req.Context()); err != nil {
		respondMapped(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"session":  r.session.State().String(),
		"account":  r.session.Account().Hex(),
		"chain_id": r.session.ChainID().String(),
	})
}

// disconnectSession clears the wallet session. Always succeeds.
func (r *Router) disconnectSession(w http.ResponseWriter, req *http.Request) {
	r.session.Disconnect()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"session": r.session.State().String(),
	})
}
