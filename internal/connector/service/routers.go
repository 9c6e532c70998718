package service

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tansive/ideconnector/internal/common/httpx"
	"github.com/tansive/ideconnector/pkg/api"
)

// NotFoundMessage is the description of the 404 reply to an unknown action.
const NotFoundMessage = "Service not found"

// actionHandlerParam binds a connector action to its handler.
type actionHandlerParam struct {
	Action  string
	Handler httpx.RequestHandler
}

func (s *Service) actionHandlers() []actionHandlerParam {
	return []actionHandlerParam{
		{
			Action:  api.ServiceLogin,
			Handler: s.login,
		},
		{
			Action:  api.ServiceLogout,
			Handler: s.logout,
		},
		{
			Action:  api.ServiceImportModule,
			Handler: s.importModule,
		},
	}
}

// Router registers the connector actions on r. Both GET and POST are accepted for every
// action; any other path below r answers 404.
func (s *Service) Router(r chi.Router) {
	for _, h := range s.actionHandlers() {
		handler := httpx.WrapHttpRsp(h.Handler)
		r.Get("/"+h.Action, handler)
		r.Post("/"+h.Action, handler)
	}
	r.NotFound(serviceNotFound)
	r.MethodNotAllowed(serviceNotFound)
}

func serviceNotFound(w http.ResponseWriter, r *http.Request) {
	httpx.ErrNotFound(NotFoundMessage).Send(w)
}
