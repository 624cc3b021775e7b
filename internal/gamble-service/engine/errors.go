package engine

import "errors"

// Categorias de erro do núcleo. Toda operação falha fechada: qualquer
// violação de precondição aborta a chamada sem mutação de estado e sem
// movimentação de custódia. Os handlers HTTP mapeiam cada categoria
// para um status específico via errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrTimingViolation = errors.New("timing violation")
	ErrAlreadySettled  = errors.New("already settled")
	ErrTransferFailed  = errors.New("transfer failed")
)
