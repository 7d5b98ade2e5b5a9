package services

import (
	"context"

	"arremate-backend/internal/apperr"
	"arremate-backend/internal/models"
)

// Capabilities checked before any mutation
const (
	CapStartSession    = "arremate:iniciar"
	CapFinishSession   = "arremate:finalizar"
	CapCancelSession   = "arremate:cancelar"
	CapReverse         = "arremate:estornar"
	CapRegisterLoss    = "arremate:registrar-perda"
	CapSetWorkerStatus = "tiktik:alterar-status"
)

func requirePermission(ctx context.Context, perms PermissionChecker, actor models.Actor, capability string) error {
	ok, err := perms.HasPermission(ctx, actor.UserID, capability)
	if err != nil {
		return apperr.Internal(err)
	}
	if !ok {
		return apperr.Forbidden("permissão negada").WithDetail("permissao", capability)
	}
	return nil
}
