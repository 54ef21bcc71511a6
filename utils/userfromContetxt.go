package utils

import (
	"net/http"

	"vogue/globals"
)

func GetUserIDFromRequest(r *http.Request) string {
	requestingUserID, ok := r.Context().Value(globals.UserIDKey).(string)
	if !ok || requestingUserID == "" {
		return ""
	}
	return requestingUserID
}

// OwnerFromRequest identifies whose cart or list a request touches: the
// signed-in user, else the X-Session-ID header.
func OwnerFromRequest(r *http.Request) string {
	if id := GetUserIDFromRequest(r); id != "" {
		return "user:" + id
	}
	if sid := r.Header.Get("X-Session-ID"); sid != "" {
		return "session:" + sid
	}
	return ""
}
