package server

import (
	"net/http"

	apperrors "github.com/adsmirror/adsmirror/internal/errors"
)

// HandleError writes every error response the router produces.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithError(w, r, err)
}
