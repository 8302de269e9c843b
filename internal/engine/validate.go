package engine

import (
	"bytes"
	"path"
	"strings"
)

// maxUploadBytes caps every uploaded document at 5 MB.
const maxUploadBytes = 5 * 1024 * 1024

var photoExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true,
}

// validatePDF checks a document upload: .pdf extension, a PDF magic
// number, and the size cap.
func validatePDF(filename string, data []byte) error {
	if strings.ToLower(path.Ext(filename)) != ".pdf" {
		return validationf("file must have a .pdf extension")
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return validationf("file is not a valid PDF document")
	}
	if len(data) > maxUploadBytes {
		return validationf("file is larger than the 5MB limit")
	}
	return nil
}

// validatePhoto checks a completion photo's extension.
func validatePhoto(filename string) error {
	if !photoExts[strings.ToLower(path.Ext(filename))] {
		return validationf("photo must be a .jpg, .jpeg, .png, .gif or .bmp file")
	}
	return nil
}
