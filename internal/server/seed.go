package server

import (
	"context"
	"encoding/json"
	"errors"

	"crewtime/internal/domain"
	"crewtime/internal/remote"
	"crewtime/internal/repo"
)

// Seed ensures an initial account exists so a fresh store is usable. It is
// a no-op when the email already has credentials.
func Seed(ctx context.Context, cfg Config, user domain.Actor, password string) error {
	_, err := cfg.Repo.GetCredential(ctx, user.Email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return err
	}

	tx, err := cfg.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if user.ID == 0 {
		user.ID, err = cfg.Repo.NextID(ctx, tx, remote.Users)
		if err != nil {
			return err
		}
	}
	if user.Role == "" {
		user.Role = domain.RoleAdmin
	}
	payload, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := cfg.Repo.InsertTx(ctx, tx, remote.Users, user.ID, payload); err != nil {
		return err
	}
	cred := repo.Credential{UserID: user.ID, Email: user.Email, Password: password}
	if err := cfg.Repo.UpsertCredentialTx(ctx, tx, cred); err != nil {
		return err
	}
	return tx.Commit()
}
