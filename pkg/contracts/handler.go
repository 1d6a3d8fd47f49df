package contracts

import "github.com/julienschmidt/httprouter"

// Handler is an HTTP surface mounted on the application router.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}
