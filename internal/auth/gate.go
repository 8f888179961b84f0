package auth

import (
	"github.com/AbogiC/kostum-resonanz/internal/apperror"
	"github.com/AbogiC/kostum-resonanz/internal/models"
)

// RequireRole passes account through unchanged when it holds role.
func RequireRole(account models.Account, role models.Role) (models.Account, error) {
	if account.Role != role {
		return models.Account{}, apperror.Forbidden("insufficient role")
	}
	return account, nil
}
