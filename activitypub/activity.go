package activitypub

import "encoding/json"

// PublicCollection is the well-known uri addressing the public at large
const PublicCollection = "https://www.w3.org/ns/activitystreams#Public"

// ActivityStreamsContext is the default @context for outgoing documents
const ActivityStreamsContext = "https://www.w3.org/ns/activitystreams"

// Activity is the generic envelope of an inbound ActivityPub activity. Object
// stays raw: each handler parses the shape it expects.
type Activity struct {
	Context interface{}     `json:"@context,omitempty"`
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Actor   string          `json:"actor"`
	Object  json.RawMessage `json:"object,omitempty"`
	To      []string        `json:"to,omitempty"`
	Cc      []string        `json:"cc,omitempty"`
}

// Note is the federation representation of a post's or a comment's content
type Note struct {
	Context      interface{} `json:"@context,omitempty"`
	ID           string      `json:"id"`
	Type         string      `json:"type"`
	AttributedTo string      `json:"attributedTo,omitempty"`
	Content      string      `json:"content"`
	URL          string      `json:"url,omitempty"`
	Published    string      `json:"published,omitempty"`
	Updated      string      `json:"updated,omitempty"`
	To           []string    `json:"to"`
	Cc           []string    `json:"cc"`
	InReplyTo    string      `json:"inReplyTo,omitempty"`
	Attachment   []Document  `json:"attachment,omitempty"`
	Tag          []Tag       `json:"tag,omitempty"`
}

// Document is an attachment on a Note (images, media)
type Document struct {
	Type      string `json:"type"`
	MediaType string `json:"mediaType,omitempty"`
	URL       string `json:"url"`
	Name      string `json:"name,omitempty"`
	Sensitive bool   `json:"sensitive,omitempty"`
}

// Tag is a hashtag or mention attached to a Note
type Tag struct {
	Type string `json:"type"`
	Href string `json:"href,omitempty"`
	Name string `json:"name,omitempty"`
}

// Tombstone marks a deleted object inside a Delete activity
type Tombstone struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Person is an ActivityPub actor document. It serves both directions: the
// actor dispatcher composes it for local actors, and remote actor fetches
// parse into it.
type Person struct {
	Context           interface{}              `json:"@context,omitempty"`
	ID                string                   `json:"id"`
	Type              string                   `json:"type"`
	PreferredUsername string                   `json:"preferredUsername"`
	Name              string                   `json:"name,omitempty"`
	Summary           string                   `json:"summary,omitempty"`
	URL               string                   `json:"url,omitempty"`
	Inbox             string                   `json:"inbox"`
	Endpoints         *Endpoints               `json:"endpoints,omitempty"`
	Followers         string                   `json:"followers,omitempty"`
	PublicKey         *PublicKey               `json:"publicKey,omitempty"`
	AssertionMethod   []map[string]interface{} `json:"assertionMethod,omitempty"`
	Icon              *ImageObject             `json:"icon,omitempty"`
	Image             *ImageObject             `json:"image,omitempty"`
	Published         string                   `json:"published,omitempty"`
}

// Endpoints carries the shared inbox of an actor's instance
type Endpoints struct {
	SharedInbox string `json:"sharedInbox,omitempty"`
}

// PublicKey is the PEM-encoded primary key of an actor
type PublicKey struct {
	ID           string `json:"id"`
	Owner        string `json:"owner"`
	PublicKeyPem string `json:"publicKeyPem"`
}

// ImageObject is an actor's icon or header image
type ImageObject struct {
	Type      string `json:"type"`
	MediaType string `json:"mediaType,omitempty"`
	URL       string `json:"url"`
}

// objectURI extracts the object's uri whether the object is a plain uri
// string or an embedded document (including Tombstones).
func objectURI(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var uri string
	if err := json.Unmarshal(raw, &uri); err == nil {
		return uri
	}

	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.ID
	}
	return ""
}
