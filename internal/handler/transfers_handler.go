package handler

import (
	"net/http"

	"github.com/boddenberg/console-bank-go/internal/domain"
	"github.com/boddenberg/console-bank-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

func transferHandler(svc *service.BankService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transfers")
		defer span.End()

		var req domain.TransferRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.FromAccountNumber == "" || req.ToAccountNumber == "" {
			writeError(w, http.StatusBadRequest, "from_account_number and to_account_number are required")
			return
		}
		if req.Note == "" {
			req.Note = "Transfer"
		}
		span.SetAttributes(
			attribute.String("transfer.from", req.FromAccountNumber),
			attribute.String("transfer.to", req.ToAccountNumber),
		)

		if err := svc.Transfer(ctx, req.FromAccountNumber, req.ToAccountNumber, req.Amount, req.Note); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		from, err := svc.GetAccount(ctx, req.FromAccountNumber)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		to, err := svc.GetAccount(ctx, req.ToAccountNumber)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.TransferResponse{From: from, To: to})
	}
}
