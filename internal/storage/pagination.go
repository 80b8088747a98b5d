package storage

import (
	"encoding/base64"
	"strconv"
)

// encodeCursor and decodeCursor implement spec §4.8's opaque base64
// pagination cursors. The cursor is the last-seen row's monotonic
// rowid; callers must treat it as opaque (spec explicitly calls the key
// "opaque"), so its numeric nature is an implementation detail, not a
// contract.
func encodeCursor(rowID int64) string {
	return base64.URLEncoding.EncodeToString([]byte(strconv.FormatInt(rowID, 10)))
}

func decodeCursor(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	raw, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(string(raw), 10, 64)
}
