package sourceurl

import (
	"net/url"
	"regexp"
	"strings"
)

// Hosts lists the media hosts the backend accepts.
var Hosts = []string{"youtube.com", "youtu.be", "music.youtube.com"}

var reSupported = regexp.MustCompile(`^(https?://)?(www\.)?(` + hostPattern() + `)/.+`)

func hostPattern() string {
	quoted := make([]string, len(Hosts))
	for i, h := range Hosts {
		quoted[i] = regexp.QuoteMeta(h)
	}
	return strings.Join(quoted, "|")
}

// IsSupported reports whether raw looks like a URL on one of Hosts with a non-empty path.
// It never touches the network.
func IsSupported(raw string) bool {
	if raw == "" {
		return false
	}
	return reSupported.MatchString(raw)
}

// Normalize rewrites music.youtube.com links to their youtube.com form.
func Normalize(raw string) string {
	return strings.Replace(raw, "music.youtube.com", "youtube.com", 1)
}

// PlaylistID returns the list= query parameter, if any.
func PlaylistID(raw string) (string, bool) {
	candidate := raw
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}
	u, err := url.Parse(candidate)
	if err != nil {
		return "", false
	}
	id := strings.TrimSpace(u.Query().Get("list"))
	return id, id != ""
}
