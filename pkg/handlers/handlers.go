package handlers

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"bookmark-manager-backend/pkg/database"
	"bookmark-manager-backend/pkg/utils"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// checkRequest runs struct validation and writes a 400 on failure.
func checkRequest(w http.ResponseWriter, req any) bool {
	if err := validate.Struct(req); err != nil {
		utils.WriteValidationErrorResponse(w, "Request validation failed", validationDetails(err))
		return false
	}
	return true
}

func validationDetails(err error) string {
	var verrs validator.ValidationErrors
	if !isValidationErrors(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+": failed "+fe.Tag())
	}
	return strings.Join(parts, "; ")
}

func isValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}

// writeStoreError maps store sentinel errors onto the response envelope.
func writeStoreError(w http.ResponseWriter, err error, notFoundMsg string) {
	switch {
	case database.IsNotFound(err):
		utils.WriteNotFoundResponse(w, notFoundMsg)
	case database.IsDuplicate(err):
		utils.WriteConflictResponse(w, "Resource already exists")
	case database.IsInvalid(err):
		utils.WriteBadRequestResponse(w, err.Error())
	default:
		utils.WriteInternalServerErrorResponse(w, "Database operation failed")
	}
}
