package model

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid"
)

var reLink = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

type ShortLink struct {
	Link    string    `json:"link"`
	URL     string    `json:"url"`
	AdminID string    `json:"admin_id,omitempty"`
	Created time.Time `json:"created"`
}

// NewShortLink checks link and target. An empty link gets a random 8 character id.
func NewShortLink(link, target, adminID string, now time.Time) (ShortLink, error) {
	if !ValidTarget(target) {
		return ShortLink{}, ValidationIssue("invalid url " + strconv.Quote(target))
	}
	if link == "" {
		link = strings.ReplaceAll(uuid.Must(uuid.NewV4()).String(), "-", "")[:8]
	} else if !ValidLink(link) {
		return ShortLink{}, ValidationIssue("invalid link " + strconv.Quote(link))
	}
	return ShortLink{
		Link:    link,
		URL:     target,
		AdminID: adminID,
		Created: now,
	}, nil
}

// ValidLink reports whether link can be used as the {link} segment of /s/{link}.
func ValidLink(link string) bool {
	return reLink.MatchString(link)
}

// ValidTarget accepts absolute http(s) URLs and site-relative paths.
func ValidTarget(target string) bool {
	u, err := url.Parse(target)
	if err != nil || target == "" {
		return false
	}
	if u.IsAbs() {
		return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
	}
	return strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//")
}
