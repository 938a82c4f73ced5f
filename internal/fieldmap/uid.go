package fieldmap

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultUIDPrefix marks places created by this importer.
const DefaultUIDPrefix = "t"

// PlaceUID derives the public uid of a place from its row id. It returns ""
// when the id is not a positive number, since the row does not exist yet.
func PlaceUID(id int64, prefix string) string {
	if id <= 0 {
		return ""
	}
	return prefix + strconv.FormatInt(id, 16)
}

// ParsePlaceUID recovers the row id from a uid built by PlaceUID.
func ParsePlaceUID(uid, prefix string) (int64, error) {
	hex, ok := strings.CutPrefix(uid, prefix)
	if !ok || hex == "" {
		return 0, fmt.Errorf("uid %q: missing prefix %q", uid, prefix)
	}
	id, err := strconv.ParseInt(hex, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("uid %q: %w", uid, err)
	}
	return id, nil
}
