package rest

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/kestrelworks/portcullis/internal/authn"
	"github.com/kestrelworks/portcullis/internal/lib/restmachinery"
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

type usersEndpoints struct {
	*restmachinery.BaseEndpoints
	userRegistrationSchemaLoader gojsonschema.JSONLoader
	passwordUpdateSchemaLoader   gojsonschema.JSONLoader
	service                      authn.UsersService
}

// NewUsersEndpoints returns the collection of User-related endpoints.
func NewUsersEndpoints(
	baseEndpoints *restmachinery.BaseEndpoints,
	service authn.UsersService,
) restmachinery.Endpoints {
	return &usersEndpoints{
		BaseEndpoints: baseEndpoints,
		userRegistrationSchemaLoader: gojsonschema.NewStringLoader(
			userRegistrationSchema,
		),
		passwordUpdateSchemaLoader: gojsonschema.NewStringLoader(
			passwordUpdateSchema,
		),
		service: service,
	}
}

func (u *usersEndpoints) Register(router *mux.Router) {
	// Register a new user
	router.HandleFunc(
		"/register",
		u.create, // No filters applied to this request
	).Methods(http.MethodPost)

	// Get the authenticated user's own profile
	router.HandleFunc(
		"/profile",
		u.TokenAuthFilter.Decorate(u.profile),
	).Methods(http.MethodGet)

	// Rotate the authenticated user's own password
	router.HandleFunc(
		"/profile/password",
		u.TokenAuthFilter.Decorate(u.updatePassword),
	).Methods(http.MethodPut)
}

func (u *usersEndpoints) create(w http.ResponseWriter, r *http.Request) {
	registration := authn.UserRegistration{}
	u.ServeRequest(
		restmachinery.InboundRequest{
			W:                   w,
			R:                   r,
			ReqBodySchemaLoader: u.userRegistrationSchemaLoader,
			ReqBodyObj:          &registration,
			EndpointLogic: func() (interface{}, error) {
				return u.service.Register(r.Context(), registration)
			},
			SuccessCode: http.StatusCreated,
		},
	)
}

func (u *usersEndpoints) profile(w http.ResponseWriter, r *http.Request) {
	u.ServeRequest(
		restmachinery.InboundRequest{
			W: w,
			R: r,
			EndpointLogic: func() (interface{}, error) {
				user, ok := authn.UserFromContext(r.Context())
				if !ok {
					return nil, errors.New(
						"error: profile request authenticated, but no user " +
							"found in request context",
					)
				}
				return user, nil
			},
			SuccessCode: http.StatusOK,
		},
	)
}

func (u *usersEndpoints) updatePassword(
	w http.ResponseWriter,
	r *http.Request,
) {
	passwordUpdate := struct {
		Password string `json:"password"`
	}{}
	u.ServeRequest(
		restmachinery.InboundRequest{
			W:                   w,
			R:                   r,
			ReqBodySchemaLoader: u.passwordUpdateSchemaLoader,
			ReqBodyObj:          &passwordUpdate,
			EndpointLogic: func() (interface{}, error) {
				user, ok := authn.UserFromContext(r.Context())
				if !ok {
					return nil, errors.New(
						"error: password update request authenticated, but " +
							"no user found in request context",
					)
				}
				return nil, u.service.UpdatePassword(
					r.Context(),
					user.ID,
					passwordUpdate.Password,
				)
			},
			SuccessCode: http.StatusOK,
		},
	)
}
