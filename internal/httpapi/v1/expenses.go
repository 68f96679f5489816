package v1

import (
	"net/http"

	"github.com/supaspend/ledger/internal/service/expense"
)

// GET /v1/users/{userID}/expenses
func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(w, r, "userID")
	if !ok {
		return
	}
	list, err := s.expenses.List(r.Context(), actorFrom(r.Context()), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := struct {
		Items []expenseResponse `json:"items"`
	}{Items: make([]expenseResponse, 0, len(list))}
	for _, e := range list {
		out.Items = append(out.Items, toExpenseResponse(e))
	}
	toJSON(w, http.StatusOK, out)
}

// POST /v1/expenses
func (s *Server) postExpense(w http.ResponseWriter, r *http.Request) {
	in, _ := r.Context().Value(ctxKeyCreateExpense).(expense.CreateInput)
	e, err := s.expenses.Create(r.Context(), actorFrom(r.Context()), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toExpenseResponse(e))
}

// PATCH /v1/expenses/{expenseID}
func (s *Server) patchExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "expenseID")
	if !ok {
		return
	}
	var req patchExpenseRequest
	if _, ok := readJSON(w, r, &req); !ok {
		return
	}
	p := expense.Patch{Amount: req.Amount, Category: req.Category, Description: req.Description, Date: req.Date}
	e, err := s.expenses.Edit(r.Context(), actorFrom(r.Context()), id, p, req.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toExpenseResponse(e))
}

// DELETE /v1/expenses/{expenseID}
func (s *Server) deleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "expenseID")
	if !ok {
		return
	}
	if err := s.expenses.Delete(r.Context(), actorFrom(r.Context()), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /v1/expenses/{expenseID}/history
func (s *Server) getExpenseHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "expenseID")
	if !ok {
		return
	}
	history, err := s.expenses.History(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, struct {
		Items []editResponse `json:"items"`
	}{Items: toHistoryResponse(history)})
}
