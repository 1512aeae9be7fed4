package prometheus

import (
	"context"

	goPerm "github.com/MrEthical07/goPerm"
)

type noUsers struct{}

func (noUsers) GetPermissionState(context.Context, string) (goPerm.UserRecord, error) {
	return goPerm.UserRecord{}, goPerm.ErrUserNotFound
}

func (noUsers) UpdatePermissionState(context.Context, string, goPerm.PermissionUpdate) (goPerm.UserRecord, error) {
	return goPerm.UserRecord{}, goPerm.ErrUserNotFound
}
