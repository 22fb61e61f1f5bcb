package user

import "errors"

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrUserInactive           = errors.New("user is inactive")
	ErrUnknownRole            = errors.New("unknown role")
	ErrAdminPrivilegeRequired = errors.New("admin privilege required")
)
