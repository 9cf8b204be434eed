// Package ledgertest provides an in-memory ledger.Repository with the same
// guard, idempotency and withdrawal semantics as the Postgres store.
package ledgertest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/TheAakashSingh/adplaymart-sub001/internal/apperr"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/ledger"

	"github.com/shopspring/decimal"
)

type Store struct {
	mu          sync.Mutex
	now         func() time.Time
	balances    map[int64]*ledger.Balance
	txs         []ledger.Transaction
	counters    map[int64]map[string]*ledger.ActivityCounter
	withdrawals []*ledger.Withdrawal
	nextTxID    int64

	// FailCredit, when set, is consulted before each credit; a non-nil
	// return aborts that apply with the error.
	FailCredit func(e ledger.Entry) error
}

var _ ledger.Repository = (*Store)(nil)

func New() *Store {
	return &Store{
		now:      time.Now,
		balances: make(map[int64]*ledger.Balance),
		counters: make(map[int64]map[string]*ledger.ActivityCounter),
	}
}

// SetClock overrides the time used for entries without an explicit At.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// AddUser registers a user with opening balances.
func (s *Store) AddUser(id int64, upgrade, withdrawal decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[id] = &ledger.Balance{UserID: id, UpgradeWallet: upgrade, WithdrawalWallet: withdrawal}
}

func (s *Store) ApplyCredit(ctx context.Context, e ledger.Entry) (*ledger.Receipt, error) {
	return s.apply(ctx, ledger.Credit, e)
}

func (s *Store) ApplyDebit(ctx context.Context, e ledger.Entry) (*ledger.Receipt, error) {
	return s.apply(ctx, ledger.Debit, e)
}

func (s *Store) Reverse(ctx context.Context, txID int64, e ledger.Entry) (*ledger.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Storage(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := e.Prepare(ledger.Credit, s.now())
	if err != nil {
		return nil, err
	}
	var original *ledger.Transaction
	for i := range s.txs {
		if s.txs[i].ID == txID && s.txs[i].UserID == e.UserID && s.txs[i].Status == ledger.StatusCompleted {
			original = &s.txs[i]
		}
	}
	if original == nil {
		return nil, ledger.ErrNotReversible
	}
	if s.FailCredit != nil {
		if err := s.FailCredit(e); err != nil {
			return nil, err
		}
	}

	rec, err := s.applyLocked(ledger.Credit, e)
	if err != nil {
		return nil, err
	}
	s.setTxStatusLocked(txID, ledger.StatusFailed)
	return rec, nil
}

func (s *Store) apply(ctx context.Context, dir ledger.Direction, e ledger.Entry) (*ledger.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Storage(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := e.Prepare(dir, s.now())
	if err != nil {
		return nil, err
	}
	if dir == ledger.Credit && s.FailCredit != nil {
		if err := s.FailCredit(e); err != nil {
			return nil, err
		}
	}
	return s.applyLocked(dir, e)
}

func (s *Store) applyLocked(dir ledger.Direction, e ledger.Entry) (*ledger.Receipt, error) {
	bal, ok := s.balances[e.UserID]
	if !ok {
		return nil, apperr.ErrUserNotFound
	}

	if dir == ledger.Debit && e.Type == ledger.TxPurchase && e.Reference != "" {
		for _, tx := range s.txs {
			if tx.Direction == ledger.Debit && tx.Type == ledger.TxPurchase && tx.Status == ledger.StatusCompleted && tx.Reference == e.Reference {
				return nil, apperr.ErrDuplicateReference
			}
		}
	}

	rec := &ledger.Receipt{}
	if e.Guard != nil {
		count := s.countLocked(ledger.DayQuery{
			UserID: e.UserID, Type: e.Type, SubType: e.SubType, From: e.Guard.From, To: e.Guard.To,
		})
		if count >= e.Guard.MaxPerDay {
			return nil, apperr.ErrDailyCapReached
		}
		if e.ContentID != "" && s.claimedLocked(e.UserID, e.Type, e.ContentID, e.Guard.Day()) {
			return nil, apperr.ErrAlreadyClaimed
		}
		rec.DailyCount = count + 1
	}

	after := bal.Of(e.Wallet)
	if e.Wallet != ledger.WalletNone {
		next, err := ledger.NextBalance(after, dir, e.Amount)
		if err != nil {
			return nil, err
		}
		after = next
		switch e.Wallet {
		case ledger.WalletUpgrade:
			bal.UpgradeWallet = after
		case ledger.WalletWithdrawal:
			bal.WithdrawalWallet = after
		}
		bal.TotalEarnings = bal.TotalEarnings.Add(e.EarningDelta(dir))
	}

	s.nextTxID++
	rec.Transaction = ledger.Transaction{
		ID:           s.nextTxID,
		UserID:       e.UserID,
		Wallet:       e.Wallet,
		Direction:    dir,
		Type:         e.Type,
		SubType:      e.SubType,
		ContentID:    e.ContentID,
		RewardDay:    e.RewardDay(),
		Amount:       e.Amount,
		NetAmount:    e.NetAmount,
		BalanceAfter: after,
		Status:       e.Status,
		Description:  e.Description,
		Reference:    e.Reference,
		CreatedAt:    e.At,
	}
	s.txs = append(s.txs, rec.Transaction)

	if e.Activity != "" {
		byActivity, ok := s.counters[e.UserID]
		if !ok {
			byActivity = make(map[string]*ledger.ActivityCounter)
			s.counters[e.UserID] = byActivity
		}
		c, ok := byActivity[e.Activity]
		if !ok {
			c = &ledger.ActivityCounter{UserID: e.UserID, Activity: e.Activity}
			byActivity[e.Activity] = c
		}
		c.Count++
		c.Earnings = c.Earnings.Add(e.Amount)
		copied := *c
		rec.Counter = &copied
	}

	return rec, nil
}

func (s *Store) countLocked(q ledger.DayQuery) int {
	n := 0
	for _, tx := range s.txs {
		if tx.UserID == q.UserID && tx.Type == q.Type && tx.SubType == q.SubType &&
			tx.Status == ledger.StatusCompleted &&
			!tx.CreatedAt.Before(q.From) && tx.CreatedAt.Before(q.To) {
			n++
		}
	}
	return n
}

func (s *Store) claimedLocked(userID int64, txType ledger.TxType, contentID, day string) bool {
	for _, tx := range s.txs {
		if tx.UserID == userID && tx.Type == txType && tx.ContentID == contentID &&
			tx.RewardDay == day && tx.Status == ledger.StatusCompleted {
			return true
		}
	}
	return false
}

func (s *Store) GetBalance(_ context.Context, userID int64) (*ledger.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bal, ok := s.balances[userID]
	if !ok {
		return nil, apperr.ErrUserNotFound
	}
	copied := *bal
	return &copied, nil
}

func (s *Store) GetTransactions(_ context.Context, userID int64, limit, offset int) ([]ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []ledger.Transaction{}
	for i := len(s.txs) - 1; i >= 0; i-- {
		if s.txs[i].UserID == userID {
			out = append(out, s.txs[i])
		}
	}
	if offset >= len(out) {
		return []ledger.Transaction{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// Transactions returns every entry in apply order.
func (s *Store) Transactions() []ledger.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ledger.Transaction(nil), s.txs...)
}

func (s *Store) CountCompleted(_ context.Context, q ledger.DayQuery) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countLocked(q), nil
}

func (s *Store) ContentClaimed(_ context.Context, userID int64, txType ledger.TxType, contentID, day string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claimedLocked(userID, txType, contentID, day), nil
}

func (s *Store) GetCounters(_ context.Context, userID int64) ([]ledger.ActivityCounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []ledger.ActivityCounter{}
	for _, c := range s.counters[userID] {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Activity < out[j].Activity })
	return out, nil
}

func (s *Store) ReserveWithdrawal(_ context.Context, d ledger.WithdrawalDraft) (*ledger.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.At.IsZero() {
		d.At = s.now()
	}
	e, err := ledger.Entry{
		UserID:      d.UserID,
		Wallet:      ledger.WalletWithdrawal,
		Amount:      d.Amount,
		NetAmount:   d.NetAmount,
		Type:        ledger.TxWithdrawal,
		Status:      ledger.StatusPending,
		Description: "Withdrawal",
		At:          d.At,
	}.Prepare(ledger.Debit, d.At)
	if err != nil {
		return nil, err
	}
	if _, ok := s.balances[d.UserID]; !ok {
		return nil, apperr.ErrUserNotFound
	}
	if last := s.lastWithdrawalLocked(d.UserID); d.MinInterval > 0 && last != nil && d.At.Sub(*last) < d.MinInterval {
		return nil, ledger.ErrWithdrawalTooSoon
	}

	rec, err := s.applyLocked(ledger.Debit, e)
	if err != nil {
		return nil, err
	}

	w := &ledger.Withdrawal{
		ID:            int64(len(s.withdrawals) + 1),
		UserID:        d.UserID,
		Amount:        d.Amount,
		TDSAmount:     d.TDSAmount,
		NetAmount:     d.NetAmount,
		Status:        ledger.WithdrawalPending,
		TransactionID: rec.Transaction.ID,
		BankDetails:   d.Bank,
		CreatedAt:     d.At,
		UpdatedAt:     d.At,
	}
	s.withdrawals = append(s.withdrawals, w)
	s.txs[len(s.txs)-1].Reference = fmt.Sprintf("withdrawal:%d", w.ID)

	copied := *w
	return &copied, nil
}

func (s *Store) TransitionWithdrawal(_ context.Context, id int64, to ledger.WithdrawalStatus, note string, at time.Time) (*ledger.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if at.IsZero() {
		at = s.now()
	}
	w := s.withdrawalLocked(id)
	if w == nil {
		return nil, ledger.ErrWithdrawalNotFound
	}
	if !w.Status.CanTransition(to) {
		return nil, apperr.NotEligible("invalid_transition", "cannot move withdrawal from %s to %s", w.Status, to)
	}

	switch to {
	case ledger.WithdrawalRejected:
		refund, err := ledger.Entry{
			UserID:      w.UserID,
			Wallet:      ledger.WalletWithdrawal,
			Amount:      w.Amount,
			Type:        ledger.TxWithdrawalRefund,
			Description: fmt.Sprintf("Refund of rejected withdrawal #%d", w.ID),
			Reference:   fmt.Sprintf("withdrawal:%d", w.ID),
			At:          at,
		}.Prepare(ledger.Credit, at)
		if err != nil {
			return nil, err
		}
		if _, err := s.applyLocked(ledger.Credit, refund); err != nil {
			return nil, err
		}
		s.setTxStatusLocked(w.TransactionID, ledger.StatusFailed)
		w.RejectedAt = &at
	case ledger.WithdrawalProcessed:
		s.setTxStatusLocked(w.TransactionID, ledger.StatusCompleted)
		w.ProcessedAt = &at
	case ledger.WithdrawalApproved:
		w.ApprovedAt = &at
	}

	w.Status = to
	w.AdminNote = note
	w.UpdatedAt = at

	copied := *w
	return &copied, nil
}

func (s *Store) setTxStatusLocked(id int64, status ledger.TxStatus) {
	for i := range s.txs {
		if s.txs[i].ID == id {
			s.txs[i].Status = status
			return
		}
	}
}

func (s *Store) withdrawalLocked(id int64) *ledger.Withdrawal {
	for _, w := range s.withdrawals {
		if w.ID == id {
			return w
		}
	}
	return nil
}

func (s *Store) GetWithdrawal(_ context.Context, id int64) (*ledger.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.withdrawalLocked(id)
	if w == nil {
		return nil, ledger.ErrWithdrawalNotFound
	}
	copied := *w
	return &copied, nil
}

func (s *Store) ListWithdrawals(_ context.Context, userID int64) ([]ledger.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []ledger.Withdrawal{}
	for i := len(s.withdrawals) - 1; i >= 0; i-- {
		if s.withdrawals[i].UserID == userID {
			out = append(out, *s.withdrawals[i])
		}
	}
	return out, nil
}

func (s *Store) ListWithdrawalsByStatus(_ context.Context, status ledger.WithdrawalStatus, limit, offset int) ([]ledger.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []ledger.Withdrawal{}
	for _, w := range s.withdrawals {
		if w.Status == status {
			out = append(out, *w)
		}
	}
	if offset >= len(out) {
		return []ledger.Withdrawal{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) LastWithdrawalAt(_ context.Context, userID int64) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastWithdrawalLocked(userID), nil
}

func (s *Store) lastWithdrawalLocked(userID int64) *time.Time {
	var last *time.Time
	for _, w := range s.withdrawals {
		if w.UserID != userID || w.Status == ledger.WithdrawalRejected {
			continue
		}
		if last == nil || w.CreatedAt.After(*last) {
			at := w.CreatedAt
			last = &at
		}
	}
	return last
}
