package api

import (
	"errors"
	"fmt"
)

// Pesan untuk pengguna, sama dengan yang dipakai storefront.
const (
	MsgConnection     = "Gagal terhubung ke server"
	MsgSessionExpired = "Sesi Anda telah berakhir, silakan login kembali"
	MsgGeneric        = "Terjadi kesalahan, silakan coba lagi"
)

var (
	ErrNetwork         = errors.New("network error")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrValidation      = errors.New("validation error")
)

// FieldError adalah satu error validasi per field dari body 'errors'.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error adalah respons non-2xx dari API (selain 401).
type Error struct {
	Message     string       `json:"message"`
	Status      int          `json:"status,omitempty"`
	FieldErrors []FieldError `json:"errors,omitempty"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return MsgGeneric
	}
	return e.Message
}

// Is: error dengan field errors cocok dengan ErrValidation.
func (e *Error) Is(target error) bool {
	return target == ErrValidation && len(e.FieldErrors) > 0
}

// Fields mengelompokkan pesan per field untuk form.
func (e *Error) Fields() map[string]string {
	out := make(map[string]string, len(e.FieldErrors))
	for _, fe := range e.FieldErrors {
		if _, ok := out[fe.Path]; !ok {
			out[fe.Path] = fe.Message
		}
	}
	return out
}

// NewValidationError membuat error validasi lokal untuk satu field (status 422).
func NewValidationError(path, message string) *Error {
	return &Error{
		Message:     message,
		Status:      422,
		FieldErrors: []FieldError{{Path: path, Message: message}},
	}
}

// NetworkError: tidak ada respons sama sekali (dial, timeout, dibatalkan).
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("%s: %v", MsgConnection, e.Err) }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

func (e *NetworkError) Unwrap() error { return e.Err }

// UserMessage mengembalikan pesan yang aman ditampilkan untuk error apa pun dari core.
// Pesan server diteruskan apa adanya; selain itu pakai pesan generik.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return MsgSessionExpired
	case errors.Is(err, ErrNetwork):
		return MsgConnection
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return MsgGeneric
}
