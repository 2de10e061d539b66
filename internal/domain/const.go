package domain

const (
	RequesterIdCtxKey = "cad-requesterId"
)

const (
	RequesterIdHeader = "cad-requester-id"
)
