// Package httpx holds the gin plumbing shared by the docseal services:
// controller registration, middleware, error responses and a server with
// graceful shutdown.
package httpx

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type Route struct {
	Path, Method string
}

// EndpointMap maps a (path, method) pair to its handler chain.
type EndpointMap map[Route][]gin.HandlerFunc

// A Controller owns a route group and the endpoints in it.
type Controller interface {
	GroupName() string
	Endpoints() EndpointMap
}

// RegisterHandlers mounts every endpoint of c under r.Group(c.GroupName()).
func RegisterHandlers(r gin.IRouter, c Controller) error {
	group := r.Group(c.GroupName())

	for route, handlers := range c.Endpoints() {
		switch strings.ToUpper(route.Method) {
		case http.MethodGet:
			group.GET(route.Path, handlers...)
		case http.MethodPost:
			group.POST(route.Path, handlers...)
		case http.MethodPut:
			group.PUT(route.Path, handlers...)
		case http.MethodDelete:
			group.DELETE(route.Path, handlers...)
		default:
			return fmt.Errorf("unsupported HTTP method %q for %s", route.Method, route.Path)
		}
	}
	return nil
}

// ParameterErrorList collects human-readable problems with request
// parameters.
type ParameterErrorList []string

// AppendIfEmptyOrBlankSpaces records errMsg when str is blank and returns
// str trimmed.
func (pel *ParameterErrorList) AppendIfEmptyOrBlankSpaces(str string, errMsg string) string {
	if str = strings.TrimSpace(str); str == "" {
		*pel = append(*pel, errMsg)
	}
	return str
}

// Abort writes the collected problems as a 400 and reports whether there
// were any.
func (pel *ParameterErrorList) Abort(c *gin.Context) bool {
	if len(*pel) == 0 {
		return false
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, ValidationBody{Message: "invalid request", Errors: *pel})
	return true
}
