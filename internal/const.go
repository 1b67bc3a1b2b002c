package internal

const (
	COOKIE_ACCESS_TOKEN_NAME = "bloodalert_access_token"
)
