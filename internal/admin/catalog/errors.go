package catalog

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidStore indicates no usable store identifier was supplied.
	ErrInvalidStore = errors.New("catalog: no store selected")
	// ErrUnexpectedResponse indicates the catalog endpoint violated its response contract.
	ErrUnexpectedResponse = errors.New("catalog: unexpected response format")
	// ErrSuperseded is returned to a load whose result arrived after a newer load started.
	ErrSuperseded = errors.New("catalog: load superseded by a newer refresh")
	// ErrNothingLoaded is returned when exporting before a successful load.
	ErrNothingLoaded = errors.New("catalog: no product list loaded")
)

// TransportError wraps network and HTTP failures raised while fetching a page.
type TransportError struct {
	StoreID int64
	Page    int
	Err     error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("catalog: fetch store %d page %d: %v", e.StoreID, e.Page, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// UserMessage converts a pipeline error into the single message shown to staff.
func UserMessage(err error) string {
	var transportErr *TransportError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidStore):
		return "Nenhuma loja selecionada. Selecione uma loja para gerar a lista."
	case errors.Is(err, ErrUnexpectedResponse):
		return "O catálogo retornou uma resposta inesperada. Tente novamente mais tarde."
	case errors.Is(err, ErrSuperseded), errors.Is(err, context.Canceled):
		return "A atualização foi substituída por uma mais recente."
	case errors.As(err, &transportErr):
		return "Falha ao carregar os produtos: " + transportErr.Err.Error()
	default:
		return "Falha ao carregar os produtos: " + err.Error()
	}
}
