// Package media handles the private file area: classifying stored paths,
// deciding who may read them, and writing uploads to disk.
package media

import (
	"path"
	"strings"
)

// Kind identifies which document family a stored path belongs to.
type Kind string

const (
	KindQuote           Kind = "quote"
	KindDepositPOP      Kind = "deposit_pop"
	KindInvoice         Kind = "invoice"
	KindCompletionPhoto Kind = "completion_photo"
	KindFinalPaymentPOP Kind = "final_payment_pop"
	// KindUnrecognized covers everything else. Unrecognized paths are
	// never served.
	KindUnrecognized Kind = "unrecognized"
)

// dirKinds maps the storage directory to the document family and the
// extensions allowed in it. Extensions compare case-insensitively; the
// directory name does not.
var dirKinds = map[string]struct {
	kind Kind
	exts []string
}{
	"quotes":             {KindQuote, []string{".pdf"}},
	"deposit_pops":       {KindDepositPOP, []string{".pdf"}},
	"invoices":           {KindInvoice, []string{".pdf"}},
	"final_payment_pops": {KindFinalPaymentPOP, []string{".pdf"}},
	"completion_photos":  {KindCompletionPhoto, []string{".jpg", ".jpeg", ".png", ".gif", ".bmp"}},
}

// Classify assigns a document family to a relative media path. Anything
// that is not exactly <known-dir>/<file-with-allowed-extension> comes back
// KindUnrecognized.
func Classify(rel string) Kind {
	parts := strings.Split(rel, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return KindUnrecognized
	}
	dk, ok := dirKinds[parts[0]]
	if !ok {
		return KindUnrecognized
	}
	ext := strings.ToLower(path.Ext(parts[1]))
	for _, allowed := range dk.exts {
		if ext == allowed {
			return dk.kind
		}
	}
	return KindUnrecognized
}
