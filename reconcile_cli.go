package main

import (
	"context"
	"encoding/json"
)

const reconcileBatchSize = 200

// runReconcileCli is the entry point for the reconcile command line
// interface. It walks every committed idempotency record and checks that its
// transaction is known to the ledger. A successful broadcast followed by a
// failed commit leaves the opposite gap (ledger mutated, store unaware); that
// side surfaces in the service logs, while records with missing transactions
// surface here.
//
// Example: signet reconcile
func runReconcileCli(logger Logger) {
	logger = logger.NewSystem("reconcile")

	config, err := LoadConfig(logger)
	if err != nil {
		logger.Fatal("Failed to load configuration", "error", err)
	}
	if !config.persistStore {
		logger.Fatal("Reconciliation requires a configured database")
	}

	db, err := ConnectToDB(config.dbConf, logger)
	if err != nil {
		logger.Fatal("Failed to setup database", "error", err)
	}
	store := NewDBIdempotencyStore(db)

	client, err := NewEthLedgerClient(config.settings.RPCURL, config.settings.ChainID, config.settings.FeeCeilingWei, logger)
	if err != nil {
		logger.Fatal("Failed to connect to ledger RPC", "error", err)
	}

	ctx := context.Background()
	var checked, missing int
	var afterID uint

	for {
		records, err := store.List(ctx, afterID, reconcileBatchSize)
		if err != nil {
			logger.Fatal("Failed to list idempotency records", "error", err)
		}
		if len(records) == 0 {
			break
		}

		for _, record := range records {
			afterID = record.ID
			checked++

			exists, err := client.TransactionExists(ctx, record.TxID)
			if err != nil {
				logger.Error("Failed to query transaction", "txID", record.TxID, "error", err)
				continue
			}
			if exists {
				continue
			}

			missing++
			var audit TransferAudit
			_ = json.Unmarshal(record.RequestData, &audit)
			logger.Warn("Committed record has no transaction on the ledger",
				"kind", record.OperationKind,
				"idempotencyKey", record.Key,
				"txID", record.TxID,
				"to", audit.To,
				"amount", audit.Amount,
				"createdAt", record.CreatedAt,
			)
		}
	}

	logger.Info("Reconciliation complete", "checked", checked, "missing", missing)
}
