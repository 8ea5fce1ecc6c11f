package prometheus

import (
	"context"

	"github.com/MrEthical07/taskAuth"
)

type nopDirectory struct{}

func (nopDirectory) FindPrincipalByID(context.Context, int64) (taskAuth.Principal, error) {
	return taskAuth.Principal{}, taskAuth.ErrPrincipalNotFound
}

func (nopDirectory) FindPrincipalByUsername(context.Context, string) (taskAuth.Principal, error) {
	return taskAuth.Principal{}, taskAuth.ErrPrincipalNotFound
}

func (nopDirectory) VerifyCredential(context.Context, string, string) (taskAuth.Principal, error) {
	return taskAuth.Principal{}, taskAuth.ErrAuthFailed
}

func (nopDirectory) IsOwner(context.Context, int64, int64) (bool, error) {
	return false, nil
}
