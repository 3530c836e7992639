package rest

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/kestrelworks/portcullis/internal/authn"
	"github.com/kestrelworks/portcullis/internal/lib/restmachinery"
	libAuthn "github.com/kestrelworks/portcullis/internal/lib/restmachinery/authn"
	"github.com/kestrelworks/portcullis/internal/meta"
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

type sessionsEndpoints struct {
	*restmachinery.BaseEndpoints
	credentialsSchemaLoader gojsonschema.JSONLoader
	sessionsService         authn.SessionsService
	tokensService           authn.TokensService
}

// NewSessionsEndpoints returns the collection of login/logout endpoints,
// covering the server-side session model, the stateless bearer token model,
// and the federated (OIDC) flow.
func NewSessionsEndpoints(
	baseEndpoints *restmachinery.BaseEndpoints,
	sessionsService authn.SessionsService,
	tokensService authn.TokensService,
) restmachinery.Endpoints {
	return &sessionsEndpoints{
		BaseEndpoints: baseEndpoints,
		credentialsSchemaLoader: gojsonschema.NewStringLoader(
			credentialsSchema,
		),
		sessionsService: sessionsService,
		tokensService:   tokensService,
	}
}

func (s *sessionsEndpoints) Register(router *mux.Router) {
	// Log in with local credentials
	router.HandleFunc(
		"/login",
		s.create, // No filters applied to this request
	).Methods(http.MethodPost)

	// Log out
	router.HandleFunc(
		"/logout",
		s.TokenAuthFilter.Decorate(s.delete),
	).Methods(http.MethodGet)

	// Begin a federated login
	router.HandleFunc(
		"/auth/oidc",
		s.createFederated, // No filters applied to this request
	).Methods(http.MethodGet)

	// OIDC callback
	router.HandleFunc(
		"/auth/oidc/callback",
		s.authenticate, // No filters applied to this request
	).Methods(http.MethodGet)
}

func (s *sessionsEndpoints) create(w http.ResponseWriter, r *http.Request) {
	// nolint: errcheck
	stateless, _ := strconv.ParseBool(r.URL.Query().Get("stateless"))

	credentials := struct {
		ID       string `json:"id"`
		Password string `json:"password"`
	}{}

	if stateless {
		s.ServeRequest(
			restmachinery.InboundRequest{
				W:                   w,
				R:                   r,
				ReqBodySchemaLoader: s.credentialsSchemaLoader,
				ReqBodyObj:          &credentials,
				EndpointLogic: func() (interface{}, error) {
					return s.tokensService.Create(
						r.Context(),
						credentials.ID,
						credentials.Password,
					)
				},
				SuccessCode: http.StatusOK,
			},
		)
		return
	}

	s.ServeRequest(
		restmachinery.InboundRequest{
			W:                   w,
			R:                   r,
			ReqBodySchemaLoader: s.credentialsSchemaLoader,
			ReqBodyObj:          &credentials,
			EndpointLogic: func() (interface{}, error) {
				token, err := s.sessionsService.Create(
					r.Context(),
					credentials.ID,
					credentials.Password,
				)
				if err != nil {
					return nil, err
				}
				// Browser clients carry the token in a cookie; API clients
				// read it from the response body and use the Authorization
				// header.
				http.SetCookie(w, &http.Cookie{
					Name:     libAuthn.SessionCookieName,
					Value:    token.Value,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
				return token, nil
			},
			SuccessCode: http.StatusOK,
		},
	)
}

func (s *sessionsEndpoints) delete(w http.ResponseWriter, r *http.Request) {
	s.ServeRequest(
		restmachinery.InboundRequest{
			W: w,
			R: r,
			EndpointLogic: func() (interface{}, error) {
				sessionID := authn.SessionIDFromContext(r.Context())
				if sessionID == "" {
					// The request was authenticated by a stateless bearer
					// token. There is nothing server-side to destroy;
					// "logout" for that model is discarding the token.
					return nil, &meta.ErrNotSupported{
						Details: "Requests authenticated by a bearer token " +
							"have no server-side session to log out of. " +
							"Discard the token instead.",
					}
				}
				if err := s.sessionsService.Delete(
					r.Context(),
					sessionID,
				); err != nil {
					return nil, err
				}
				// Best-effort cookie clearing. Cosmetic only: the
				// server-side record is already gone, so the cookie's value
				// is meaningless either way.
				http.SetCookie(w, &http.Cookie{
					Name:     libAuthn.SessionCookieName,
					Value:    "",
					Path:     "/",
					HttpOnly: true,
					MaxAge:   -1,
				})
				return struct{}{}, nil
			},
			SuccessCode: http.StatusOK,
		},
	)
}

func (s *sessionsEndpoints) createFederated(
	w http.ResponseWriter,
	r *http.Request,
) {
	s.ServeRequest(
		restmachinery.InboundRequest{
			W: w,
			R: r,
			EndpointLogic: func() (interface{}, error) {
				return s.sessionsService.CreateFederated(r.Context())
			},
			SuccessCode: http.StatusOK,
		},
	)
}

func (s *sessionsEndpoints) authenticate(
	w http.ResponseWriter,
	r *http.Request,
) {
	defer r.Body.Close() // nolint: errcheck

	oauth2State := r.URL.Query().Get("state")
	oidcCode := r.URL.Query().Get("code")

	s.ServeHumanRequest(restmachinery.HumanRequest{
		W: w,
		EndpointLogic: func() (interface{}, error) {
			if oauth2State == "" || oidcCode == "" {
				return nil, &meta.ErrBadRequest{
					Reason: `The OpenID Connect authentication completion ` +
						`request lacked one or both of the "state" and ` +
						`"code" query parameters.`,
				}
			}
			if err := s.sessionsService.Authenticate(
				r.Context(),
				oauth2State,
				oidcCode,
			); err != nil {
				return nil, errors.Wrap(
					err,
					"error completing OpenID Connect authentication",
				)
			}
			return []byte("You're now authenticated. You may close this " +
				"window and return to the application."), nil
		},
		SuccessCode: http.StatusOK,
	})
}
