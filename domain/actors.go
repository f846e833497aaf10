package domain

import (
	"fmt"
	"github.com/google/uuid"
	"time"
)

// Actor represents a federation identity. Local actors are provisioned
// out-of-band; remote actors are shadow rows managed by the actor cache.
type Actor struct {
	Id             uuid.UUID
	Uri            string // globally unique
	Handle         string // @user@host
	Username       string
	Name           string
	Summary        string
	AvatarId       *uuid.UUID
	BannerId       *uuid.UUID
	InboxUrl       string
	SharedInboxUrl string
	Url            string
	CreatedAt      time.Time
}

func (a *Actor) ToString() string {
	return fmt.Sprintf("\n\tId: %s \n\tUri: %s \n\tHandle: %s \n\tCreatedAt: %s)", a.Id, a.Uri, a.Handle, a.CreatedAt)
}

// Image is a stored image reference. OriginalUrl keeps the remote source url
// so a mirrored copy can be compared against the current remote icon.
type Image struct {
	Id          uuid.UUID
	Url         string
	OriginalUrl string
	CreatedAt   time.Time
}

type KeyAlgorithm string

const (
	KeyAlgorithmRSA     KeyAlgorithm = "RSASSA-PKCS1-v1_5"
	KeyAlgorithmEd25519 KeyAlgorithm = "Ed25519"
)

// KeyAlgorithms is the fixed order of supported algorithms. Index 0 is the
// actor's primary key.
var KeyAlgorithms = []KeyAlgorithm{KeyAlgorithmRSA, KeyAlgorithmEd25519}

// Key is a persisted key pair for one (actor, algorithm), serialized as JWK
type Key struct {
	ActorId    uuid.UUID
	Algorithm  KeyAlgorithm
	PrivateJwk string
	PublicJwk  string
	CreatedAt  time.Time
}
