// internal/order/order_transition.go
package order

import (
	"errors"
	"fmt"
)

// Action adalah aksi yang mengubah status pesanan.
type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionComplete Action = "complete"
	ActionReject   Action = "reject"
	ActionCancel   Action = "cancel"
)

var (
	ErrInvalidTransition    = errors.New("perubahan status pesanan tidak diizinkan")
	ErrTransitionInProgress = errors.New("pesanan sedang diproses, mohon tunggu")
)

type transitionKey struct {
	from   OrderStatus
	action Action
}

// Tabel transisi: (status sekarang, aksi) -> status berikutnya.
// Pasangan yang tidak ada di tabel berarti ditolak. Status terminal tidak punya entri.
var transitions = map[transitionKey]OrderStatus{
	{StatusPending, ActionConfirm}:     StatusProcessing,
	{StatusProcessing, ActionComplete}: StatusCompleted,
	{StatusPending, ActionReject}:      StatusCancelled,
	{StatusPending, ActionCancel}:      StatusCancelled,
}

// Siapa yang boleh memicu aksi.
var actionRole = map[Action]Role{
	ActionConfirm:  RoleSeller,
	ActionComplete: RoleSeller,
	ActionReject:   RoleSeller,
	ActionCancel:   RoleBuyer,
}

// Actions mengembalikan semua aksi transisi milik role, urutan tetap.
func Actions(role Role) []Action {
	var out []Action
	for _, a := range []Action{ActionConfirm, ActionComplete, ActionReject, ActionCancel} {
		if actionRole[a] == role {
			out = append(out, a)
		}
	}
	return out
}

// RoleOf mengembalikan role yang berhak atas aksi.
func RoleOf(a Action) (Role, bool) {
	r, ok := actionRole[a]
	return r, ok
}

// Next mengembalikan status hasil aksi dari status from, atau TransitionError.
func Next(from OrderStatus, action Action) (OrderStatus, error) {
	to, ok := transitions[transitionKey{from, action}]
	if !ok {
		return from, &TransitionError{From: from, Action: action}
	}
	return to, nil
}

// Allowed melaporkan apakah aksi sah dari status from.
func Allowed(from OrderStatus, action Action) bool {
	_, ok := transitions[transitionKey{from, action}]
	return ok
}

// CanTransition melaporkan apakah ada aksi apa pun yang membawa from ke to.
func CanTransition(from, to OrderStatus) bool {
	for k, v := range transitions {
		if k.from == from && v == to {
			return true
		}
	}
	return false
}

// ActionFor mencari satu-satunya aksi milik role yang membawa from ke to.
func ActionFor(role Role, from, to OrderStatus) (Action, bool) {
	for _, a := range Actions(role) {
		if next, ok := transitions[transitionKey{from, a}]; ok && next == to {
			return a, true
		}
	}
	return "", false
}

// TransitionError dipakai baik untuk penolakan lokal (tabel) maupun penolakan server (4xx dari endpoint mutasi).
// Keduanya cocok dengan errors.Is(err, ErrInvalidTransition).
type TransitionError struct {
	OrderID int64
	From    OrderStatus
	Action  Action
	// Message dari server, ditampilkan apa adanya. Kosong untuk penolakan lokal.
	Message string
	Err     error
}

func (e *TransitionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.From != "" {
		return fmt.Sprintf("pesanan #%d berstatus %q tidak dapat di-%s", e.OrderID, e.From, e.Action)
	}
	return ErrInvalidTransition.Error()
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

func (e *TransitionError) Unwrap() error { return e.Err }
