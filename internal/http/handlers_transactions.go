package http

import (
	"context"
	"net/http"

	"budgetplanner/internal/core"
	"budgetplanner/internal/session"
)

// transactionOps binds the handlers of one kind to the session methods for it.
type transactionOps struct {
	kind   core.Kind
	list   func(month string) []core.Transaction
	add    func(ctx context.Context, in session.NewTransaction) (core.Transaction, error)
	update func(ctx context.Context, id string, p session.TransactionPatch) (core.Transaction, error)
	remove func(ctx context.Context, id string) error
}

func (s *Server) incomeOps() transactionOps {
	return transactionOps{
		kind:   core.KindIncome,
		list:   s.session.Incomes,
		add:    s.session.AddIncome,
		update: s.session.UpdateIncome,
		remove: s.session.RemoveIncome,
	}
}

func (s *Server) expenseOps() transactionOps {
	return transactionOps{
		kind:   core.KindExpense,
		list:   s.session.Expenses,
		add:    s.session.AddExpense,
		update: s.session.UpdateExpense,
		remove: s.session.RemoveExpense,
	}
}

// handleList returns the transactions of ?month=, or all of them when the
// parameter is absent.
func (ops transactionOps) handleList(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r, "")
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(ops.list(month)).Write(w)
}

func (ops transactionOps) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := parseRequest(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := ops.add(r.Context(), req.toNew())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", r.URL.Path+"/"+t.ID).
		Data(t).
		Write(w)
}

func (ops transactionOps) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req transactionPatchRequest
	if err := parseRequest(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := ops.update(r.Context(), r.PathValue("id"), req.toPatch())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(t).Write(w)
}

func (ops transactionOps) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := ops.remove(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
