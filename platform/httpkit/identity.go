package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Identity is the authenticated operator behind an admin request.
type Identity interface {
	// Subject is the operator named in the token.
	Subject() string
	IsAuthenticated() bool
}

type identity struct {
	subject string
}

func (i identity) Subject() string { return i.subject }

func (i identity) IsAuthenticated() bool { return i.subject != "" }

// GetIdentity extracts the operator set by AdminRequired. Requests outside
// the admin group yield an unauthenticated identity.
func GetIdentity(c *gin.Context) Identity {
	return identity{subject: c.GetString(ContextOperatorKey)}
}

// MustGetIdentity aborts with 401 when no operator is present.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	return id
}
