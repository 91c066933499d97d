// filename.go - Store code extraction for batch uploads

package audit

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Batch filenames start with the store code, optionally followed by a
// separator and free text: "bvi_aisle1.jpg", "S002-display.png", "12.jpg".
var storeCodeRe = regexp.MustCompile(`^([a-z0-9]+)`)

// ExtractStoreCode pulls the store code from the leading run of a batch
// upload's filename. Matching is case-insensitive; the returned code is
// uppercased for lookup. Returns false when the name has no usable prefix.
func ExtractStoreCode(filename string) (string, bool) {
	base := strings.ToLower(filepath.Base(filename))
	match := storeCodeRe.FindStringSubmatch(base)
	if match == nil {
		return "", false
	}
	return strings.ToUpper(match[1]), true
}
