package validator

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// registerUploadRules installs the custom tags used by the upload DTOs.
func registerUploadRules(v *validator.Validate) {
	// storagefolder: a relative folder path that cannot climb out of the
	// disk root. Empty values pass; pair with "required" when needed.
	v.RegisterValidation("storagefolder", func(fl validator.FieldLevel) bool {
		folder := fl.Field().String()
		if folder == "" {
			return true
		}
		if strings.HasPrefix(folder, "/") || strings.Contains(folder, "\\") {
			return false
		}
		for _, segment := range strings.Split(folder, "/") {
			if segment == "" || segment == "." || segment == ".." {
				return false
			}
		}
		return true
	})
}
