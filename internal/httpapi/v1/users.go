package v1

import (
	"net/http"

	"github.com/supaspend/ledger/internal/service/user"
)

// GET /v1/me
func (s *Server) getMe(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	u, err := s.users.Get(r.Context(), actor, actor.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toUserResponse(u))
}

// POST /v1/users
func (s *Server) postUser(w http.ResponseWriter, r *http.Request) {
	in, _ := r.Context().Value(ctxKeyCreateUser).(user.CreateInput)
	u, err := s.users.Create(r.Context(), actorFrom(r.Context()), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toUserResponse(u))
}

// GET /v1/users
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := s.users.ListWithBalances(r.Context(), actorFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := struct {
		Items []userOverviewResponse `json:"items"`
	}{Items: make([]userOverviewResponse, 0, len(list))}
	for _, o := range list {
		out.Items = append(out.Items, toOverviewResponse(o))
	}
	toJSON(w, http.StatusOK, out)
}

// DELETE /v1/users/{userID}
func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "userID")
	if !ok {
		return
	}
	if err := s.users.Delete(r.Context(), actorFrom(r.Context()), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
