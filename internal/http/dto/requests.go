package dto

type NonceRequest struct {
	Address string `json:"address"`
}

type VerifyRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
}
