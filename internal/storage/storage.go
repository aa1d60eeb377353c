package storage

import "liquidityVault/internal/model"

// Journal defines a sink for vault operation records.
type Journal interface {
	AppendOperations(records []model.OperationRecord) error
}
