package audit

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// isAudited reports whether a request changes registry state.
func isAudited(method, path string) bool {
	if !strings.HasPrefix(path, "/api/") {
		return false
	}
	switch method {
	case "POST", "PUT", "PATCH", "DELETE":
		return true
	}
	return false
}

// resourceFromPath returns the innermost resource collection and id of a
// path such as /api/v1/vessels/3/sensors/9 ("sensors", "9"). Collections
// addressed without an id return an empty id.
func resourceFromPath(path string) (string, string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	var resource, id string
	for i := 0; i < len(parts); i++ {
		p := parts[i]
		if p == "api" || isVersion(p) || isID(p) || isActionSegment(p) {
			continue
		}
		resource, id = p, ""
		if i+1 < len(parts) && isID(parts[i+1]) {
			id = parts[i+1]
			i++
		}
	}
	return resource, id
}

// actionFor names the change a request makes.
func actionFor(method, path string) string {
	switch {
	case strings.HasSuffix(path, "/acknowledge"):
		return "acknowledge"
	case strings.HasSuffix(path, "/resolve"):
		return "resolve"
	case strings.HasSuffix(path, "/cancel"):
		return "cancel"
	}
	switch method {
	case "POST":
		return "create"
	case "PUT", "PATCH":
		return "update"
	case "DELETE":
		return "delete"
	}
	return strings.ToLower(method)
}

func isActionSegment(s string) bool {
	return s == "acknowledge" || s == "resolve" || s == "cancel"
}

// isID matches registry ids and import job UUIDs.
func isID(s string) bool {
	if isNumeric(s) {
		return true
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func isVersion(s string) bool {
	return len(s) > 1 && s[0] == 'v' && isNumeric(s[1:])
}

func isNumeric(s string) bool {
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}
