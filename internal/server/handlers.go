package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/tabmate/tabmate/internal/calculator"
	"github.com/tabmate/tabmate/internal/ledger"
	"github.com/tabmate/tabmate/internal/middleware"
	"github.com/tabmate/tabmate/internal/models"
	"github.com/tabmate/tabmate/internal/money"
	"github.com/tabmate/tabmate/internal/service"
	"github.com/tabmate/tabmate/internal/storage"
)

// moneyJSON is the wire shape for an amount. Amount is the decimal string
// in major units; clients never see minor units directly.
type moneyJSON struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func toMoneyJSON(m money.Money) moneyJSON {
	return moneyJSON{Amount: m.Decimal().StringFixed(2), Currency: m.Currency}
}

type shareJSON struct {
	ParticipantID string    `json:"participant_id"`
	Amount        moneyJSON `json:"amount"`
	Settled       bool      `json:"settled"`
}

type expenseJSON struct {
	ID          string      `json:"id"`
	Description string      `json:"description,omitempty"`
	Amount      moneyJSON   `json:"amount"`
	PayerID     string      `json:"payer_id"`
	GroupID     string      `json:"group_id"`
	Split       string      `json:"split"`
	Shares      []shareJSON `json:"shares"`
	CreatedAt   int64       `json:"created_at"`
}

func toExpenseJSON(e *models.Expense) expenseJSON {
	shares := make([]shareJSON, len(e.Shares))
	for i, s := range e.Shares {
		shares[i] = shareJSON{
			ParticipantID: s.ParticipantID,
			Amount:        toMoneyJSON(s.Amount),
			Settled:       s.Settled,
		}
	}
	return expenseJSON{
		ID:          e.ID,
		Description: e.Description,
		Amount:      toMoneyJSON(e.Amount),
		PayerID:     e.PayerID,
		GroupID:     e.GroupID,
		Split:       string(e.Split),
		Shares:      shares,
		CreatedAt:   e.CreatedAt,
	}
}

type groupJSON struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Currency  string   `json:"currency"`
	Members   []string `json:"members"`
	CreatedAt int64    `json:"created_at"`
}

func toGroupJSON(g *models.Group) groupJSON {
	return groupJSON{
		ID:        g.ID,
		Name:      g.Name,
		Currency:  g.Currency,
		Members:   g.Members,
		CreatedAt: g.CreatedAt,
	}
}

type pairwiseJSON struct {
	DebtorID   string    `json:"debtor_id"`
	CreditorID string    `json:"creditor_id"`
	Amount     moneyJSON `json:"amount"`
}

type balancesJSON struct {
	PerUserNet map[string]moneyJSON `json:"per_user_net"`
	Pairwise   []pairwiseJSON       `json:"pairwise"`
	GroupTotal moneyJSON            `json:"group_total"`
}

// toBalancesJSON flattens the pairwise map into debtor/creditor rows so
// the response carries no sign conventions to explain.
func toBalancesJSON(view *calculator.LedgerView) balancesJSON {
	out := balancesJSON{
		PerUserNet: make(map[string]moneyJSON, len(view.PerUserNet)),
		GroupTotal: toMoneyJSON(view.GroupTotal),
	}
	for id, net := range view.PerUserNet {
		out.PerUserNet[id] = toMoneyJSON(net)
	}
	for pair, amount := range view.PairwiseNet {
		debtor, creditor := pair.High, pair.Low
		if amount.Units < 0 {
			debtor, creditor = pair.Low, pair.High
			amount = amount.Neg()
		}
		out.Pairwise = append(out.Pairwise, pairwiseJSON{
			DebtorID:   debtor,
			CreditorID: creditor,
			Amount:     toMoneyJSON(amount),
		})
	}
	return out
}

type transferJSON struct {
	FromID string    `json:"from_id"`
	ToID   string    `json:"to_id"`
	Amount moneyJSON `json:"amount"`
}

type createGroupRequest struct {
	Name     string   `json:"name"`
	Currency string   `json:"currency"`
	Members  []string `json:"members"`
}

type addMembersRequest struct {
	Members []string `json:"members"`
}

type createExpenseRequest struct {
	Description    string            `json:"description"`
	Amount         string            `json:"amount"`
	Currency       string            `json:"currency"`
	PayerID        string            `json:"payer_id"`
	GroupID        string            `json:"group_id"`
	Split          string            `json:"split"`
	ParticipantIDs []string          `json:"participant_ids"`
	Percentages    map[string]string `json:"percentages,omitempty"`
	Amounts        map[string]string `json:"amounts,omitempty"`
	PayerExternal  bool              `json:"payer_external,omitempty"`
}

type recordSettlementRequest struct {
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
	Amount string `json:"amount"`
	Note   string `json:"note,omitempty"`
}

type settlementJSON struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id"`
	FromID    string    `json:"from_id"`
	ToID      string    `json:"to_id"`
	Amount    moneyJSON `json:"amount"`
	CreatedAt int64     `json:"created_at"`
	Note      string    `json:"note,omitempty"`
}

func toSettlementJSON(s *models.Settlement) settlementJSON {
	return settlementJSON{
		ID:        s.ID,
		GroupID:   s.GroupID,
		FromID:    s.FromID,
		ToID:      s.ToID,
		Amount:    toMoneyJSON(s.Amount),
		CreatedAt: s.CreatedAt,
		Note:      s.Note,
	}
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	group, err := s.groups.CreateGroup(r.Context(), req.Name, req.Currency, req.Members)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupJSON(group))
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.groups.ListGroups(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]groupJSON, len(groups))
	for i, g := range groups {
		out[i] = toGroupJSON(g)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := s.groups.GetGroup(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupJSON(group))
}

func (s *Server) handleAddMembers(w http.ResponseWriter, r *http.Request) {
	var req addMembersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.groups.AddMembers(r.Context(), chi.URLParam(r, "groupID"), req.Members); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	svcReq, err := req.toServiceRequest()
	if err != nil {
		middleware.ExpenseMutations.WithLabelValues("add", "invalid").Inc()
		writeError(w, http.StatusBadRequest, err)
		return
	}
	expense, err := s.expenses.CreateExpense(r.Context(), svcReq)
	if err != nil {
		middleware.ExpenseMutations.WithLabelValues("add", mutationOutcome(err)).Inc()
		writeServiceError(w, err)
		return
	}
	middleware.ExpenseMutations.WithLabelValues("add", "ok").Inc()
	writeJSON(w, http.StatusCreated, toExpenseJSON(expense))
}

// toServiceRequest parses the wire amounts and percentages into exact
// numeric forms.
func (req createExpenseRequest) toServiceRequest() (service.CreateExpenseRequest, error) {
	amount, err := money.Parse(req.Amount, req.Currency)
	if err != nil {
		return service.CreateExpenseRequest{}, err
	}
	out := service.CreateExpenseRequest{
		Description:    req.Description,
		Amount:         amount,
		PayerID:        req.PayerID,
		GroupID:        req.GroupID,
		Split:          calculator.SplitKind(req.Split),
		ParticipantIDs: req.ParticipantIDs,
		PayerExternal:  req.PayerExternal,
	}
	if len(req.Percentages) > 0 {
		out.Percentages = make(map[string]decimal.Decimal, len(req.Percentages))
		for id, pct := range req.Percentages {
			d, err := decimal.NewFromString(pct)
			if err != nil {
				return service.CreateExpenseRequest{}, err
			}
			out.Percentages[id] = d
		}
	}
	if len(req.Amounts) > 0 {
		out.Amounts = make(map[string]int64, len(req.Amounts))
		for id, raw := range req.Amounts {
			m, err := money.Parse(raw, req.Currency)
			if err != nil {
				return service.CreateExpenseRequest{}, err
			}
			out.Amounts[id] = m.Units
		}
	}
	return out, nil
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	expense, err := s.expenses.GetExpense(r.Context(), chi.URLParam(r, "expenseID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseJSON(expense))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	err := s.expenses.DeleteExpense(r.Context(), chi.URLParam(r, "expenseID"))
	if err != nil {
		middleware.ExpenseMutations.WithLabelValues("remove", mutationOutcome(err)).Inc()
		writeServiceError(w, err)
		return
	}
	middleware.ExpenseMutations.WithLabelValues("remove", "ok").Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.expenses.ListExpenses(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]expenseJSON, len(expenses))
	for i, e := range expenses {
		out[i] = toExpenseJSON(e)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSettleShare(w http.ResponseWriter, r *http.Request) {
	expenseID := chi.URLParam(r, "expenseID")
	participantID := chi.URLParam(r, "participantID")
	if err := s.expenses.SettleShare(r.Context(), expenseID, participantID); err != nil {
		middleware.ExpenseMutations.WithLabelValues("settle", mutationOutcome(err)).Inc()
		writeServiceError(w, err)
		return
	}
	middleware.ExpenseMutations.WithLabelValues("settle", "ok").Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecordSettlement(w http.ResponseWriter, r *http.Request) {
	var req recordSettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	groupID := chi.URLParam(r, "groupID")
	group, err := s.groups.GetGroup(r.Context(), groupID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	amount, err := money.Parse(req.Amount, group.Currency)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	settlement := &models.Settlement{
		GroupID: groupID,
		FromID:  req.FromID,
		ToID:    req.ToID,
		Amount:  amount,
		Note:    req.Note,
	}
	if err := s.expenses.RecordSettlement(r.Context(), settlement); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": settlement.ID})
}

func (s *Server) handleListSettlements(w http.ResponseWriter, r *http.Request) {
	settlements, err := s.expenses.ListSettlements(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]settlementJSON, len(settlements))
	for i, st := range settlements {
		out[i] = toSettlementJSON(st)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteSettlement(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	settlementID := chi.URLParam(r, "settlementID")
	if err := s.expenses.DeleteSettlement(r.Context(), groupID, settlementID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	view, err := s.expenses.Balances(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalancesJSON(view))
}

func (s *Server) handleSettleUp(w http.ResponseWriter, r *http.Request) {
	transfers, err := s.expenses.SettleUpPlan(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]transferJSON, len(transfers))
	for i, t := range transfers {
		out[i] = transferJSON{FromID: t.FromID, ToID: t.ToID, Amount: toMoneyJSON(t.Amount)}
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeServiceError maps domain errors onto HTTP statuses: validation
// failures are the client's fault, missing records are 404, and a remote
// rejection means the backend refused an otherwise valid request.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrExpenseNotFound),
		errors.Is(err, models.ErrShareNotFound),
		errors.Is(err, models.ErrSettlementNotFound),
		errors.Is(err, storage.ErrGroupNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, ledger.ErrRemoteRejected):
		writeError(w, http.StatusBadGateway, err)
	case errors.Is(err, calculator.ErrNoParticipants),
		errors.Is(err, calculator.ErrDuplicateParticipant),
		errors.Is(err, calculator.ErrNonPositiveAmount),
		errors.Is(err, calculator.ErrMissingParticipant),
		errors.Is(err, calculator.ErrUnbalancedSplit),
		errors.Is(err, calculator.ErrNegativeShare),
		errors.Is(err, calculator.ErrUnsupportedSplit),
		errors.Is(err, models.ErrPayerNotInSplit),
		errors.Is(err, models.ErrSelfSettlement),
		errors.Is(err, models.ErrEmptyParticipant),
		errors.Is(err, money.ErrCurrencyMismatch),
		errors.Is(err, money.ErrEmptyCurrency),
		errors.Is(err, service.ErrEmptyName),
		errors.Is(err, service.ErrEmptyCurrency):
		writeError(w, http.StatusBadRequest, err)
	default:
		slog.Error("Internal error", "error", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}

// mutationOutcome buckets a mutation error for the metrics counter.
func mutationOutcome(err error) string {
	if errors.Is(err, ledger.ErrRemoteRejected) {
		return "rejected"
	}
	return "invalid"
}
