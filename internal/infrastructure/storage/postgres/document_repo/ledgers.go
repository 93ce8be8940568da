package document_repo

import (
	"stockledger/internal/domain/documents/adjustment"
	"stockledger/internal/domain/documents/inward"
	"stockledger/internal/domain/documents/outward"
	"stockledger/internal/domain/documents/production"
	"stockledger/internal/domain/documents/transfer"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/storage/postgres"
)

// InwardRepo stores goods receipts.
type InwardRepo struct {
	*BaseDocumentRepo[*inward.Inward, inward.Line]
}

func NewInwardRepo(txm *postgres.TxManager) *InwardRepo {
	return &InwardRepo{NewBaseDocumentRepo(txm, ledger.KindInward, "inwards", "inward_lines",
		func() *inward.Inward { return &inward.Inward{} },
		func(d *inward.Inward) *[]inward.Line { return &d.Lines },
	)}
}

// OutwardRepo stores goods dispatched.
type OutwardRepo struct {
	*BaseDocumentRepo[*outward.Outward, outward.Line]
}

func NewOutwardRepo(txm *postgres.TxManager) *OutwardRepo {
	return &OutwardRepo{NewBaseDocumentRepo(txm, ledger.KindOutward, "outwards", "outward_lines",
		func() *outward.Outward { return &outward.Outward{} },
		func(d *outward.Outward) *[]outward.Line { return &d.Lines },
	)}
}

// ProductionRepo stores production runs.
type ProductionRepo struct {
	*BaseDocumentRepo[*production.Production, production.Line]
}

func NewProductionRepo(txm *postgres.TxManager) *ProductionRepo {
	return &ProductionRepo{NewBaseDocumentRepo(txm, ledger.KindProduction, "productions", "production_lines",
		func() *production.Production { return &production.Production{} },
		func(d *production.Production) *[]production.Line { return &d.Lines },
	)}
}

// TransferRepo stores warehouse transfers.
type TransferRepo struct {
	*BaseDocumentRepo[*transfer.Transfer, transfer.Line]
}

func NewTransferRepo(txm *postgres.TxManager) *TransferRepo {
	return &TransferRepo{NewBaseDocumentRepo(txm, ledger.KindTransfer, "transfers", "transfer_lines",
		func() *transfer.Transfer { return &transfer.Transfer{} },
		func(d *transfer.Transfer) *[]transfer.Line { return &d.Lines },
	)}
}

// AdjustmentRepo stores stock adjustments.
type AdjustmentRepo struct {
	*BaseDocumentRepo[*adjustment.Adjustment, adjustment.Line]
}

func NewAdjustmentRepo(txm *postgres.TxManager) *AdjustmentRepo {
	return &AdjustmentRepo{NewBaseDocumentRepo(txm, ledger.KindAdjustment, "adjustments", "adjustment_lines",
		func() *adjustment.Adjustment { return &adjustment.Adjustment{} },
		func(d *adjustment.Adjustment) *[]adjustment.Line { return &d.Lines },
	)}
}

var (
	_ inward.Repository     = (*InwardRepo)(nil)
	_ outward.Repository    = (*OutwardRepo)(nil)
	_ production.Repository = (*ProductionRepo)(nil)
	_ transfer.Repository   = (*TransferRepo)(nil)
	_ adjustment.Repository = (*AdjustmentRepo)(nil)
)
