package web

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deemkeen/fedipage/db"
	"github.com/deemkeen/fedipage/util"
)

// WebFingerResponse is the JRD document answering a webfinger lookup
type WebFingerResponse struct {
	Subject string          `json:"subject"`
	Aliases []string        `json:"aliases,omitempty"`
	Links   []WebFingerLink `json:"links"`
}

type WebFingerLink struct {
	Rel  string `json:"rel"`
	Type string `json:"type,omitempty"`
	Href string `json:"href,omitempty"`
}

// Webfinger resolves an acct: resource against the local actors. The
// resource must name this instance's domain.
func Webfinger(database *db.DB, conf *util.AppConfig, resource string) (string, error) {
	if !strings.HasPrefix(resource, "acct:") {
		return "", fmt.Errorf("unsupported resource %q", resource)
	}

	acct := strings.TrimPrefix(resource, "acct:")
	acct = strings.TrimPrefix(acct, "@")
	username, host, found := strings.Cut(acct, "@")
	if !found || username == "" {
		return "", fmt.Errorf("malformed acct resource %q", resource)
	}
	if host != conf.Conf.SslDomain {
		return "", fmt.Errorf("resource %q does not belong to this instance", resource)
	}

	actorURI := fmt.Sprintf("%s/users/%s", conf.PublicURL(), username)
	err, actor := database.ReadActorByUri(actorURI)
	if err != nil {
		return "", err
	}
	response := WebFingerResponse{
		Subject: fmt.Sprintf("acct:%s@%s", actor.Username, conf.Conf.SslDomain),
		Aliases: []string{actorURI},
		Links: []WebFingerLink{
			{
				Rel:  "self",
				Type: "application/activity+json",
				Href: actorURI,
			},
		},
	}

	data, err := json.Marshal(response)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WebFingerNotFound is the body served for unresolvable resources
func WebFingerNotFound() string {
	return `{"detail":"Not Found"}`
}
