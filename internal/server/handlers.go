package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"restaurants/internal/contract"
	"restaurants/internal/shared"
)

// Operation names as declared by the contract's operationIds.
const (
	OpListRestaurants   = "getRestaurants"
	OpGetRestaurant     = "getRestaurant"
	OpAddRestaurant     = "addRestaurant"
	OpUpdateRestaurant  = "updateRestaurant"
	// PUT shares the PATCH merge; operationIds must be unique per document.
	OpReplaceRestaurant = "replaceRestaurant"
	OpDeleteRestaurant  = "deleteRestaurant"
)

type API struct {
	Store   Store
	Log     *slog.Logger
	Metrics *Metrics
}

// Operations is the static operationId -> implementation table handed to
// the dispatcher.
func (a *API) Operations() contract.Operations {
	return contract.Operations{
		OpListRestaurants:   a.ListRestaurants,
		OpGetRestaurant:     a.GetRestaurant,
		OpAddRestaurant:     a.AddRestaurant,
		OpUpdateRestaurant:  a.UpdateRestaurant,
		OpReplaceRestaurant: a.UpdateRestaurant,
		OpDeleteRestaurant:  a.DeleteRestaurant,
	}
}

func (a *API) ListRestaurants(req *contract.Request, reply *contract.Reply) {
	rs, err := a.Store.List(req.Context())
	if err != nil {
		a.fail(req, reply, err)
		return
	}
	reply.Send(rs)
}

func (a *API) GetRestaurant(req *contract.Request, reply *contract.Reply) {
	r, err := a.Store.Get(req.Context(), req.Param("id"))
	if err != nil {
		a.fail(req, reply, err)
		return
	}
	reply.Send(r)
}

func (a *API) AddRestaurant(req *contract.Request, reply *contract.Reply) {
	var in shared.Restaurant
	if err := req.Decode(&in); err != nil {
		reply.Code(http.StatusBadRequest).Send(shared.ErrorResponse{Message: "bad json"})
		return
	}
	created, err := a.Store.Create(req.Context(), in)
	if err != nil {
		a.fail(req, reply, err)
		return
	}
	a.Log.Info("restaurant created", "id", created.ID, "name", created.Name)
	a.recordCount(req)
	reply.Code(http.StatusCreated).Send(created)
}

func (a *API) UpdateRestaurant(req *contract.Request, reply *contract.Reply) {
	var patch shared.RestaurantPatch
	if err := req.Decode(&patch); err != nil {
		reply.Code(http.StatusBadRequest).Send(shared.ErrorResponse{Message: "bad json"})
		return
	}
	if err := a.Store.Update(req.Context(), req.Param("id"), patch); err != nil {
		a.fail(req, reply, err)
		return
	}
	reply.Code(http.StatusNoContent).Send(nil)
}

func (a *API) DeleteRestaurant(req *contract.Request, reply *contract.Reply) {
	if err := a.Store.Delete(req.Context(), req.Param("id")); err != nil {
		a.fail(req, reply, err)
		return
	}
	a.Log.Info("restaurant deleted", "id", req.Param("id"))
	a.recordCount(req)
	reply.Code(http.StatusNoContent).Send(nil)
}

func NotFoundMessage(id string) string {
	return fmt.Sprintf("Restaurant with id '%s' not found", id)
}

func (a *API) fail(req *contract.Request, reply *contract.Reply, err error) {
	if errors.Is(err, ErrNotFound) {
		reply.Code(http.StatusNotFound).Send(shared.ErrorResponse{Message: NotFoundMessage(req.Param("id"))})
		return
	}
	a.Log.Error("store error", "operation", req.Route.OperationID, "error", err)
	reply.Code(http.StatusInternalServerError).Send(shared.ErrorResponse{Message: "internal server error"})
}

func (a *API) recordCount(req *contract.Request) {
	if a.Metrics == nil {
		return
	}
	n, err := a.Store.Len(req.Context())
	if err != nil {
		a.Log.Warn("count restaurants", "error", err)
		return
	}
	a.Metrics.SetRecords(n)
}

func (a *API) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, shared.HealthResponse{Status: "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
